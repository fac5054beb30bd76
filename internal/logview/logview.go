package logview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/taskbot/internal/repository"
	"github.com/foxseedlab/taskbot/internal/tracker"
)

const dateLayout = "2006-01-02"

var ErrInvalidQuery = errors.New("invalid log query")

// Query selects the activity of one project. Dates are calendar days in the
// service's zone; both are optional and the end date is inclusive.
type Query struct {
	ProjectID string
	StartDate string
	EndDate   string
}

type Entry struct {
	UserName   string    `json:"user_name"`
	UserID     string    `json:"user_id"`
	TicketLink string    `json:"ticket_link"`
	TicketKey  string    `json:"ticket_key"`
	CreatedAt  time.Time `json:"created_at"`
}

type Service struct {
	activity repository.ActivityRepository
	tracker  tracker.Tracker
	loc      *time.Location
}

func NewService(activity repository.ActivityRepository, tr tracker.Tracker, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{activity: activity, tracker: tr, loc: loc}
}

// List returns the matching entries, newest first.
func (s *Service) List(ctx context.Context, q Query) ([]Entry, error) {
	filter, err := s.filter(q)
	if err != nil {
		return nil, err
	}
	records, err := s.activity.ListActivity(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, Entry{
			UserName:   r.UserDisplayName,
			UserID:     r.UserExternalID,
			TicketLink: r.TicketLink,
			TicketKey:  TicketKey(r.TicketLink),
			CreatedAt:  r.CreatedAt.In(s.loc),
		})
	}
	return entries, nil
}

// Projects lists the tracker's projects for the dashboard selector.
func (s *Service) Projects(ctx context.Context) ([]tracker.Project, error) {
	projects, err := s.tracker.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *Service) filter(q Query) (repository.ActivityFilter, error) {
	projectID := strings.TrimSpace(q.ProjectID)
	if projectID == "" {
		return repository.ActivityFilter{}, fmt.Errorf("%w: project_id is required", ErrInvalidQuery)
	}
	filter := repository.ActivityFilter{ProjectRef: projectID}

	if q.StartDate != "" {
		from, err := time.ParseInLocation(dateLayout, q.StartDate, s.loc)
		if err != nil {
			return repository.ActivityFilter{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD, got %q", ErrInvalidQuery, q.StartDate)
		}
		filter.From = &from
	}
	if q.EndDate != "" {
		end, err := time.ParseInLocation(dateLayout, q.EndDate, s.loc)
		if err != nil {
			return repository.ActivityFilter{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD, got %q", ErrInvalidQuery, q.EndDate)
		}
		until := end.AddDate(0, 0, 1)
		filter.Until = &until
	}
	if filter.From != nil && filter.Until != nil && !filter.From.Before(*filter.Until) {
		return repository.ActivityFilter{}, fmt.Errorf("%w: start_date %s is after end_date %s", ErrInvalidQuery, q.StartDate, q.EndDate)
	}
	return filter, nil
}

// TicketKey is the last path segment of a ticket link.
func TicketKey(link string) string {
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		return link[i+1:]
	}
	return link
}
