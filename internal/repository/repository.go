package repository

import (
	"context"
	"time"
)

type CreateUserInput struct {
	ExternalID  string
	DisplayName string
}

type InsertActivityInput struct {
	UserExternalID  string
	UserDisplayName string
	TicketLink      string
	ProjectRef      string
	CreatedAt       time.Time
}

// ActivityFilter selects records of one project. From is inclusive and Until
// exclusive; a nil bound is open.
type ActivityFilter struct {
	ProjectRef string
	From       *time.Time
	Until      *time.Time
}

type UserRepository interface {
	// GetUserByExternalID returns nil without error when the user is unknown.
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	// CreateUser is idempotent on the external id and never overwrites the
	// stored display name.
	CreateUser(ctx context.Context, input CreateUserInput) (*User, error)
}

type ActivityRepository interface {
	InsertActivity(ctx context.Context, input InsertActivityInput) (*ActivityRecord, error)
	ListActivity(ctx context.Context, filter ActivityFilter) ([]ActivityEntry, error)
}

type Repository interface {
	UserRepository
	ActivityRepository
}
