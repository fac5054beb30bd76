package webhook

import (
	"context"
	"time"
)

const TicketCreatedSchemaVersion = 1

type TicketCreatedPayload struct {
	SchemaVersion int       `json:"schema_version"`
	ProjectKey    string    `json:"project_key"`
	ProjectID     string    `json:"project_id"`
	ProjectName   string    `json:"project_name"`
	TicketKey     string    `json:"ticket_key"`
	TicketLink    string    `json:"ticket_link"`
	Title         string    `json:"title"`
	UserID        string    `json:"user_id"`
	UserName      string    `json:"user_name"`
	CreatedAt     time.Time `json:"created_at"`
}

type Sender interface {
	SendTicketCreated(ctx context.Context, payload TicketCreatedPayload) error
}
