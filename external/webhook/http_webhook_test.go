package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxseedlab/taskbot/internal/webhook"
)

func TestSendTicketCreated_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("", time.Second)
	if err := sender.SendTicketCreated(context.Background(), webhook.TicketCreatedPayload{}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendTicketCreated_Success(t *testing.T) {
	var got webhook.TicketCreatedPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, time.Second)
	payload := webhook.TicketCreatedPayload{
		SchemaVersion: webhook.TicketCreatedSchemaVersion,
		ProjectKey:    "ALPHA",
		TicketKey:     "ALPHA-9",
		TicketLink:    "https://jira.example.com/browse/ALPHA-9",
		UserName:      "alice",
	}
	if err := sender.SendTicketCreated(context.Background(), payload); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.TicketKey != "ALPHA-9" || got.UserName != "alice" || got.SchemaVersion != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestSendTicketCreated_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL, time.Second)
	if err := sender.SendTicketCreated(context.Background(), webhook.TicketCreatedPayload{}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
