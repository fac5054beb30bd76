package repository

import "time"

type User struct {
	ID          int64
	DisplayName string
	ExternalID  string
	IsAdmin     bool
	IsBanned    bool
}

type ActivityRecord struct {
	ID         int64
	UserRef    int64
	TicketLink string
	ProjectRef string
	CreatedAt  time.Time
}

// ActivityEntry is an activity record joined with its user.
type ActivityEntry struct {
	ActivityRecord
	UserDisplayName string
	UserExternalID  string
}
