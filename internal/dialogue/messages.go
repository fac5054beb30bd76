package dialogue

import (
	"fmt"

	"github.com/foxseedlab/taskbot/internal/chat"
	"github.com/foxseedlab/taskbot/internal/tracker"
)

const (
	CommandCreateTask = "Create task"
	CommandStartOver  = "Start over"
	CommandBack       = "Back"
	buttonViewLogs    = "View logs"

	messageWelcome          = `Hi! I can create a Jira task for you. Press "Create task" to begin.`
	messageChooseProject    = "Choose a project:"
	messageNoProjects       = "No projects are available right now."
	messageProjectNotFound  = "No project with that name was found."
	messageEnterSummary     = "Enter the task title:"
	messageEnterDescription = "Enter the task description:"
	// "Create task" while drafting keeps the draft; restarting from
	// AwaitingDescription would jump two stages back.
	messageTaskInProgress = `A task is already being drafted. Press "Back" or "Start over" to change it.`
	messageCreateFailed   = "Failed to create the task. Please try again later."
	messageTryLater       = "Something went wrong. Please try again later."
	messageTaskCreated    = "Task created successfully!"
	messageBlocked        = "You have been blocked by an administrator!"

	messageTaskCreatedLinkFormat = "[Task](%s) created successfully!"
	attributedTitleFormat        = "(from %s) %s"
)

func plain(roomID, text string) chat.OutgoingMessage {
	return chat.OutgoingMessage{RoomID: roomID, Text: text}
}

func commandAction(label string) chat.Action {
	return chat.Action{Label: label, Text: label}
}

// welcomeMessage offers the entry buttons; admins also get a link to the log view.
func welcomeMessage(roomID string, isAdmin bool, logViewURL string) chat.OutgoingMessage {
	actions := []chat.Action{
		commandAction(CommandCreateTask),
		commandAction(CommandBack),
		commandAction(CommandStartOver),
	}
	if isAdmin && logViewURL != "" {
		actions = append(actions, chat.Action{Label: buttonViewLogs, Text: buttonViewLogs, URL: logViewURL})
	}
	return chat.OutgoingMessage{RoomID: roomID, Text: messageWelcome, Actions: actions}
}

func projectListMessage(roomID string, projects []tracker.Project) chat.OutgoingMessage {
	actions := make([]chat.Action, 0, len(projects))
	for _, p := range projects {
		actions = append(actions, commandAction(p.Name))
	}
	return chat.OutgoingMessage{RoomID: roomID, Text: messageChooseProject, Actions: actions}
}

func taskCreatedMessage(roomID, link string) chat.OutgoingMessage {
	if link == "" {
		return plain(roomID, messageTaskCreated)
	}
	return plain(roomID, fmt.Sprintf(messageTaskCreatedLinkFormat, link))
}

// AttributedTitle prefixes the summary with the requester's name.
func AttributedTitle(displayName, summary string) string {
	return fmt.Sprintf(attributedTitleFormat, displayName, summary)
}
