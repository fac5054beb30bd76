package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/foxseedlab/taskbot/internal/access"
	"github.com/foxseedlab/taskbot/internal/chat"
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/repository"
	"github.com/foxseedlab/taskbot/internal/tracker"
	"github.com/foxseedlab/taskbot/internal/webhook"
)

const activityInsertRetries = 3

// ErrTransient wraps failures after which the message should be offered
// again on a later poll. The conversation is left untouched in that case.
var ErrTransient = errors.New("transient failure")

type Engine struct {
	cfg      *config.Config
	gate     *access.Gate
	chat     chat.Sender
	tracker  tracker.Tracker
	activity repository.ActivityRepository
	webhook  webhook.Sender

	conversations *conversationStore
	now           func() time.Time
	newBackOff    func() backoff.BackOff
}

func NewEngine(cfg *config.Config, gate *access.Gate, sender chat.Sender, tr tracker.Tracker, activity repository.ActivityRepository, wh webhook.Sender) *Engine {
	return &Engine{
		cfg:           cfg,
		gate:          gate,
		chat:          sender,
		tracker:       tr,
		activity:      activity,
		webhook:       wh,
		conversations: newConversationStore(),
		now:           time.Now,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
}

// inbound is one user message after the access gate.
type inbound struct {
	roomID   string
	userID   string
	userName string
	text     string
	isAdmin  bool
}

// HandleMessage runs the access gate and advances the room's conversation by
// one message. Errors wrapping ErrTransient leave all state unchanged.
func (e *Engine) HandleMessage(ctx context.Context, msg chat.DirectMessage) error {
	verdict, err := e.gate.Admit(ctx, msg.AuthorID, msg.AuthorName)
	if err != nil {
		return classify(err)
	}
	if verdict.Banned() {
		slog.Info("ignoring message from banned user", "room_id", msg.RoomID, "user_id", msg.AuthorID)
		return classify(e.chat.SendMessage(ctx, plain(msg.RoomID, messageBlocked)))
	}

	in := inbound{
		roomID:   msg.RoomID,
		userID:   msg.AuthorID,
		userName: msg.AuthorName,
		text:     msg.Text,
		isAdmin:  verdict.IsAdmin(),
	}
	if in.userName == "" && verdict.User != nil {
		in.userName = verdict.User.DisplayName
	}

	current := e.conversations.get(msg.RoomID)
	next, err := e.step(ctx, current, in)
	if err != nil {
		slog.Warn("message not processed", "error", err, "room_id", msg.RoomID, "stage", current.Stage.String())
		if !IsTransient(err) {
			// The poll loop will not offer this message again.
			e.sendBestEffort(ctx, plain(msg.RoomID, messageTryLater))
		}
		return classify(err)
	}
	e.conversations.put(next)
	if next.Stage != current.Stage {
		slog.Info("stage changed",
			"room_id", msg.RoomID,
			"user_id", msg.AuthorID,
			"registered", verdict.Registered,
			"from", current.Stage.String(),
			"to", next.Stage.String(),
			"active_conversations", e.conversations.len(),
		)
	}
	return nil
}

// Conversation returns a copy of the room's current conversation.
func (e *Engine) Conversation(roomID string) Conversation {
	return e.conversations.get(roomID)
}

func (e *Engine) step(ctx context.Context, conv Conversation, in inbound) (Conversation, error) {
	switch in.text {
	case CommandStartOver:
		return e.enterIdle(ctx, conv.reset(), in)
	case CommandBack:
		if conv.Stage != StageIdle {
			return e.back(ctx, conv, in)
		}
	case CommandCreateTask:
		if conv.Stage != StageIdle {
			return conv, e.chat.SendMessage(ctx, plain(in.roomID, messageTaskInProgress))
		}
		conv.Stage = StageAwaitingProject
		return e.offerProjects(ctx, conv)
	}

	switch conv.Stage {
	case StageAwaitingProject:
		return e.offerProjects(ctx, conv)
	case StageAwaitingProjectConfirm:
		return e.confirmProject(ctx, conv, in)
	case StageAwaitingSummary:
		return e.takeSummary(ctx, conv, in)
	case StageAwaitingDescription:
		return e.takeDescription(ctx, conv, in)
	default:
		return e.enterIdle(ctx, conv, in)
	}
}

func (e *Engine) enterIdle(ctx context.Context, conv Conversation, in inbound) (Conversation, error) {
	if err := e.chat.SendMessage(ctx, welcomeMessage(in.roomID, in.isAdmin, e.cfg.LogViewURL)); err != nil {
		return conv, err
	}
	return conv.reset(), nil
}

func (e *Engine) back(ctx context.Context, conv Conversation, in inbound) (Conversation, error) {
	conv.Stage = conv.Stage.previous()
	conv.Project = nil
	conv.Summary = ""
	conv.Description = ""
	if conv.Stage == StageIdle {
		return e.enterIdle(ctx, conv, in)
	}
	return e.offerProjects(ctx, conv)
}

// offerProjects is the entry action of AwaitingProject; it also re-offers the
// list when "Back" lands on AwaitingProjectConfirm.
func (e *Engine) offerProjects(ctx context.Context, conv Conversation) (Conversation, error) {
	projects, err := e.tracker.ListProjects(ctx)
	if err != nil {
		return conv, err
	}
	if len(projects) == 0 {
		if err := e.chat.SendMessage(ctx, plain(conv.RoomID, messageNoProjects)); err != nil {
			return conv, err
		}
		return conv.reset(), nil
	}
	if err := e.chat.SendMessage(ctx, projectListMessage(conv.RoomID, projects)); err != nil {
		return conv, err
	}
	conv.Stage = StageAwaitingProjectConfirm
	return conv, nil
}

func (e *Engine) confirmProject(ctx context.Context, conv Conversation, in inbound) (Conversation, error) {
	projects, err := e.tracker.ListProjects(ctx)
	if err != nil {
		return conv, err
	}
	project, ok := tracker.FindProjectByName(projects, in.text)
	if !ok {
		return conv, e.chat.SendMessage(ctx, plain(in.roomID, messageProjectNotFound))
	}
	if err := e.chat.SendMessage(ctx, plain(in.roomID, messageEnterSummary)); err != nil {
		return conv, err
	}
	conv.Project = &project
	conv.Stage = StageAwaitingSummary
	return conv, nil
}

func (e *Engine) takeSummary(ctx context.Context, conv Conversation, in inbound) (Conversation, error) {
	if err := e.chat.SendMessage(ctx, plain(in.roomID, messageEnterDescription)); err != nil {
		return conv, err
	}
	conv.Summary = in.text
	conv.Stage = StageAwaitingDescription
	return conv, nil
}

// takeDescription creates the ticket. Whatever the outcome the room returns
// to Idle and the message is consumed, so a draft is never submitted twice.
func (e *Engine) takeDescription(ctx context.Context, conv Conversation, in inbound) (Conversation, error) {
	conv.Description = in.text
	if conv.Project == nil {
		slog.Error("description received without a selected project", "room_id", in.roomID)
		e.sendBestEffort(ctx, plain(in.roomID, messageCreateFailed))
		return conv.reset(), nil
	}
	project := *conv.Project
	title := AttributedTitle(in.userName, conv.Summary)

	created, err := e.tracker.CreateIssue(ctx, project.Key, title, conv.Description)
	if err != nil {
		slog.Error("failed to create issue", "error", err, "room_id", in.roomID, "user_id", in.userID, "project_key", project.Key)
		e.sendBestEffort(ctx, plain(in.roomID, messageCreateFailed))
		return conv.reset(), nil
	}
	slog.Info("issue created", "room_id", in.roomID, "user_id", in.userID, "project_key", project.Key, "issue_key", created.Key)

	link := e.resolveLink(ctx, project.Key, title, created)
	createdAt := e.now()
	e.recordActivity(ctx, repository.InsertActivityInput{
		UserExternalID:  in.userID,
		UserDisplayName: in.userName,
		TicketLink:      link,
		ProjectRef:      project.ID,
		CreatedAt:       createdAt,
	})
	if err := e.webhook.SendTicketCreated(ctx, webhook.TicketCreatedPayload{
		SchemaVersion: webhook.TicketCreatedSchemaVersion,
		ProjectKey:    project.Key,
		ProjectID:     project.ID,
		ProjectName:   project.Name,
		TicketKey:     created.Key,
		TicketLink:    link,
		Title:         title,
		UserID:        in.userID,
		UserName:      in.userName,
		CreatedAt:     createdAt,
	}); err != nil {
		slog.Error("failed to send ticket webhook", "error", err, "issue_key", created.Key)
	}

	e.sendBestEffort(ctx, taskCreatedMessage(in.roomID, link))
	return conv.reset(), nil
}

// resolveLink searches for the attributed title and falls back to the link of
// the issue the tracker just reported.
func (e *Engine) resolveLink(ctx context.Context, projectKey, title string, created tracker.CreatedIssue) string {
	link, err := e.tracker.FindIssueLink(ctx, projectKey, title)
	if err != nil {
		slog.Warn("failed to look up issue link", "error", err, "project_key", projectKey, "issue_key", created.Key)
	}
	if link == "" {
		return created.Link
	}
	return link
}

func (e *Engine) recordActivity(ctx context.Context, input repository.InsertActivityInput) {
	op := func() error {
		_, err := e.activity.InsertActivity(ctx, input)
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(e.newBackOff(), activityInsertRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		slog.Error("failed to record activity", "error", err, "user_id", input.UserExternalID, "ticket_link", input.TicketLink, "project_ref", input.ProjectRef)
	}
}

func (e *Engine) sendBestEffort(ctx context.Context, msg chat.OutgoingMessage) {
	if err := e.chat.SendMessage(ctx, msg); err != nil {
		slog.Error("failed to send message", "error", err, "room_id", msg.RoomID)
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsTransient(err) {
		return errors.Join(ErrTransient, err)
	}
	return err
}

// IsTransient reports whether err is a backend outage worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) ||
		errors.Is(err, chat.ErrUnavailable) ||
		errors.Is(err, tracker.ErrUnavailable) ||
		errors.Is(err, access.ErrBanStatusUnknown) ||
		errors.Is(err, context.DeadlineExceeded)
}
