package tracker

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrUnavailable marks failures to reach the issue tracker.
	ErrUnavailable = errors.New("issue tracker unavailable")
	// ErrRejected is returned when the tracker refuses the submitted fields.
	ErrRejected = errors.New("issue tracker rejected request")
)

type Project struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

type Issue struct {
	ID    string
	Key   string
	Title string
}

type CreatedIssue struct {
	ID   string
	Key  string
	Link string
}

type Tracker interface {
	ListProjects(ctx context.Context) ([]Project, error)
	CreateIssue(ctx context.Context, projectKey, title, description string) (CreatedIssue, error)
	// FindIssueLink returns the browse link of the newest issue in the project
	// whose title equals title, or "" when none matches.
	FindIssueLink(ctx context.Context, projectKey, title string) (string, error)
}

// FindProjectByName matches the display name exactly, case included.
func FindProjectByName(projects []Project, name string) (Project, bool) {
	for _, p := range projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// LatestIssue picks the issue with the highest numeric id. The tracker gives
// no creation-order guarantee other than id monotonicity. Issues whose id is
// not numeric are ignored.
func LatestIssue(issues []Issue) (Issue, bool) {
	var (
		best   Issue
		bestID int64
		found  bool
	)
	for _, issue := range issues {
		id, err := strconv.ParseInt(issue.ID, 10, 64)
		if err != nil {
			continue
		}
		if !found || id > bestID {
			best, bestID, found = issue, id, true
		}
	}
	return best, found
}
