package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/taskbot/internal/repository"
)

// ErrBanStatusUnknown is returned when the store cannot confirm whether the
// sender is banned. The message must not be processed; callers retry later.
var ErrBanStatusUnknown = errors.New("ban status could not be confirmed")

type Verdict struct {
	User       *repository.User
	Registered bool
}

func (v Verdict) Banned() bool {
	return v.User != nil && v.User.IsBanned
}

func (v Verdict) IsAdmin() bool {
	return v.User != nil && v.User.IsAdmin
}

type Gate struct {
	users repository.UserRepository
}

func NewGate(users repository.UserRepository) *Gate {
	return &Gate{users: users}
}

// Admit looks the sender up and registers first contacts. Lookup failures
// fail closed; registration failures fail open.
func (g *Gate) Admit(ctx context.Context, externalID, displayName string) (Verdict, error) {
	user, err := g.users.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrBanStatusUnknown, err)
	}
	if user != nil {
		return Verdict{User: user}, nil
	}

	created, err := g.users.CreateUser(ctx, repository.CreateUserInput{
		ExternalID:  externalID,
		DisplayName: displayName,
	})
	if err != nil {
		slog.Error("failed to register user; proceeding unregistered", "error", err, "user_id", externalID)
		return Verdict{User: &repository.User{ExternalID: externalID, DisplayName: displayName}}, nil
	}
	slog.Info("registered new user", "user_id", externalID, "user_name", displayName)
	return Verdict{User: created, Registered: true}, nil
}
