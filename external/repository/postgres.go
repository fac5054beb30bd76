package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/foxseedlab/taskbot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// dbPool is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const upsertUserSQL = `INSERT INTO users (display_name, external_id)
	 VALUES ($1, $2)
	 ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
	 RETURNING id, display_name, external_id, is_admin, is_banned`

type PostgresRepository struct {
	pool dbPool
}

func NewPostgresRepository(pool dbPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Shutdown closes the underlying pool when it supports closing.
func (r *PostgresRepository) Shutdown() {
	if c, ok := r.pool.(interface{ Close() }); ok {
		c.Close()
	}
}

func (r *PostgresRepository) GetUserByExternalID(ctx context.Context, externalID string) (*repository.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, display_name, external_id, is_admin, is_banned
		 FROM users WHERE external_id = $1`,
		externalID)
	var u repository.User
	err := row.Scan(&u.ID, &u.DisplayName, &u.ExternalID, &u.IsAdmin, &u.IsBanned)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	var u repository.User
	err := r.pool.QueryRow(ctx, upsertUserSQL, input.DisplayName, input.ExternalID).
		Scan(&u.ID, &u.DisplayName, &u.ExternalID, &u.IsAdmin, &u.IsBanned)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// InsertActivity makes sure the user row exists and appends the record in a
// single transaction. The ticket link is unique, so a retried append returns
// the row written by the earlier attempt instead of adding a second one.
func (r *PostgresRepository) InsertActivity(ctx context.Context, input repository.InsertActivityInput) (*repository.ActivityRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	var u repository.User
	if err := tx.QueryRow(ctx, upsertUserSQL, input.UserDisplayName, input.UserExternalID).
		Scan(&u.ID, &u.DisplayName, &u.ExternalID, &u.IsAdmin, &u.IsBanned); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	rec := repository.ActivityRecord{
		UserRef:    u.ID,
		TicketLink: input.TicketLink,
		ProjectRef: input.ProjectRef,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO activity_log (user_ref, ticket_link, created_at, project_ref)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (ticket_link) DO NOTHING
		 RETURNING id, created_at`,
		u.ID, input.TicketLink, input.CreatedAt, input.ProjectRef).
		Scan(&rec.ID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx,
			`SELECT id, user_ref, project_ref, created_at
			 FROM activity_log WHERE ticket_link = $1`,
			input.TicketLink).
			Scan(&rec.ID, &rec.UserRef, &rec.ProjectRef, &rec.CreatedAt)
	}
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PostgresRepository) ListActivity(ctx context.Context, filter repository.ActivityFilter) ([]repository.ActivityEntry, error) {
	query := psql.
		Select("a.id", "a.user_ref", "a.ticket_link", "a.project_ref", "a.created_at", "u.display_name", "u.external_id").
		From("activity_log a").
		Join("users u ON u.id = a.user_ref").
		Where(squirrel.Eq{"a.project_ref": filter.ProjectRef}).
		OrderBy("a.created_at DESC", "a.id DESC")
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"a.created_at": *filter.From})
	}
	if filter.Until != nil {
		query = query.Where(squirrel.Lt{"a.created_at": *filter.Until})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []repository.ActivityEntry
	for rows.Next() {
		var e repository.ActivityEntry
		if err := rows.Scan(&e.ID, &e.UserRef, &e.TicketLink, &e.ProjectRef, &e.CreatedAt, &e.UserDisplayName, &e.UserExternalID); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}
