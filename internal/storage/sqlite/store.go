// Package sqlite provides a SQLite-backed storage.Store for single-node and
// development deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/storage"
	"github.com/dshills/sitesmith/internal/storage/sqlite/migrations"
)

// Store persists application state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertSubscriber inserts the email or refreshes its updated_at.
func (s *Store) UpsertSubscriber(ctx context.Context, email string, at time.Time) (storage.Subscriber, error) {
	var created, updated int64
	var sub storage.Subscriber
	err := s.sqlDB.QueryRowContext(ctx,
		`INSERT INTO subscribers (email, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET updated_at = excluded.updated_at
		 RETURNING email, created_at, updated_at`,
		email, toMillis(at), toMillis(at),
	).Scan(&sub.Email, &created, &updated)
	if err != nil {
		return storage.Subscriber{}, fmt.Errorf("upsert subscriber: %w", err)
	}
	sub.CreatedAt = fromMillis(created)
	sub.UpdatedAt = fromMillis(updated)
	return sub, nil
}

// SaveProject inserts or replaces a project owned by p.OwnerID.
// The published flag is only changed by PublishProject.
func (s *Store) SaveProject(ctx context.Context, p project.Project) error {
	payload, err := project.Marshal(p)
	if err != nil {
		return err
	}
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO projects (id, owner_id, title, payload, published, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title,
		   payload = excluded.payload,
		   updated_at = excluded.updated_at
		 WHERE projects.owner_id = excluded.owner_id`,
		p.ID, p.OwnerID, p.Title, payload, p.Published, toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("save project %s: owned by another user: %w", p.ID, storage.ErrConflict)
	}
	return nil
}

// GetProject loads a project snapshot.
func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	var payload []byte
	var published bool
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT payload, published FROM projects WHERE id = ?`, id,
	).Scan(&payload, &published)
	if errors.Is(err, sql.ErrNoRows) {
		return project.Project{}, fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return project.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}

	p, err := project.Unmarshal(payload)
	if err != nil {
		return project.Project{}, err
	}
	p.Published = published
	return p, nil
}

// ListProjects returns the owner's projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]storage.ProjectSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, owner_id, title, published, published_at, updated_at
		 FROM projects WHERE owner_id = ?
		 ORDER BY updated_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	list := make([]storage.ProjectSummary, 0)
	for rows.Next() {
		var sum storage.ProjectSummary
		var publishedAt sql.NullInt64
		var updatedAt int64
		if err := rows.Scan(&sum.ID, &sum.OwnerID, &sum.Title, &sum.Published, &publishedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		sum.PublishedAt = fromNullMillis(publishedAt)
		sum.UpdatedAt = fromMillis(updatedAt)
		list = append(list, sum)
	}
	return list, rows.Err()
}

// PublishProject marks the project published at the given time.
func (s *Store) PublishProject(ctx context.Context, id string, at time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE projects SET published = 1, published_at = ? WHERE id = ?`,
		toMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("publish project %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateShareLink stores a new share link.
func (s *Store) CreateShareLink(ctx context.Context, link storage.ShareLink) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO share_links (token, project_id, created_by, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.Token, link.ProjectID, link.CreatedBy, toMillis(link.CreatedAt), toMillis(link.ExpiresAt),
	)
	if err != nil {
		return mapConstraint("create share link", err)
	}
	return nil
}

// ResolveShareLink returns a live share link.
func (s *Store) ResolveShareLink(ctx context.Context, token string, now time.Time) (storage.ShareLink, error) {
	var link storage.ShareLink
	var created, expires int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT token, project_id, created_by, created_at, expires_at
		 FROM share_links WHERE token = ?`, token,
	).Scan(&link.Token, &link.ProjectID, &link.CreatedBy, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ShareLink{}, fmt.Errorf("share link: %w", storage.ErrNotFound)
	}
	if err != nil {
		return storage.ShareLink{}, fmt.Errorf("resolve share link: %w", err)
	}
	link.CreatedAt = fromMillis(created)
	link.ExpiresAt = fromMillis(expires)
	if link.Expired(now) {
		return storage.ShareLink{}, fmt.Errorf("share link: %w", storage.ErrExpired)
	}
	return link, nil
}

// CreateInvitation stores a pending invitation.
func (s *Store) CreateInvitation(ctx context.Context, inv storage.Invitation) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO invitations (token, project_id, email, invited_by, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		inv.Token, inv.ProjectID, inv.Email, inv.InvitedBy, toMillis(inv.CreatedAt), toMillis(inv.ExpiresAt),
	)
	if err != nil {
		return mapConstraint("create invitation", err)
	}
	return nil
}

// GetInvitation loads an invitation by token.
func (s *Store) GetInvitation(ctx context.Context, token string) (storage.Invitation, error) {
	return getInvitation(ctx, s.sqlDB, token)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getInvitation(ctx context.Context, q queryer, token string) (storage.Invitation, error) {
	var inv storage.Invitation
	var created, expires int64
	var acceptedBy sql.NullString
	var acceptedAt sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT token, project_id, email, invited_by, created_at, expires_at, accepted_by, accepted_at
		 FROM invitations WHERE token = ?`, token,
	).Scan(&inv.Token, &inv.ProjectID, &inv.Email, &inv.InvitedBy, &created, &expires, &acceptedBy, &acceptedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Invitation{}, fmt.Errorf("invitation: %w", storage.ErrNotFound)
	}
	if err != nil {
		return storage.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	inv.CreatedAt = fromMillis(created)
	inv.ExpiresAt = fromMillis(expires)
	inv.AcceptedBy = acceptedBy.String
	inv.AcceptedAt = fromNullMillis(acceptedAt)
	return inv, nil
}

// AcceptInvitation marks the invitation used and adds userID as a collaborator.
func (s *Store) AcceptInvitation(ctx context.Context, token, userID string, at time.Time) (storage.Invitation, error) {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.Invitation{}, fmt.Errorf("begin accept invitation: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inv, err := getInvitation(ctx, tx, token)
	if err != nil {
		return storage.Invitation{}, err
	}
	if inv.Accepted() {
		if inv.AcceptedBy == userID {
			return inv, nil
		}
		return storage.Invitation{}, fmt.Errorf("invitation already accepted: %w", storage.ErrConflict)
	}
	if inv.Expired(at) {
		return storage.Invitation{}, fmt.Errorf("invitation: %w", storage.ErrExpired)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE invitations SET accepted_by = ?, accepted_at = ? WHERE token = ?`,
		userID, toMillis(at), token,
	); err != nil {
		return storage.Invitation{}, fmt.Errorf("accept invitation: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collaborators (project_id, user_id, added_at) VALUES (?, ?, ?)
		 ON CONFLICT (project_id, user_id) DO NOTHING`,
		inv.ProjectID, userID, toMillis(at),
	); err != nil {
		return storage.Invitation{}, fmt.Errorf("add collaborator: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return storage.Invitation{}, fmt.Errorf("commit accept invitation: %w", err)
	}

	acceptedAt := fromMillis(toMillis(at))
	inv.AcceptedBy = userID
	inv.AcceptedAt = &acceptedAt
	return inv, nil
}

// ListCollaborators returns collaborators in the order they joined.
func (s *Store) ListCollaborators(ctx context.Context, projectID string) ([]storage.Collaborator, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT project_id, user_id, added_at FROM collaborators
		 WHERE project_id = ? ORDER BY added_at, user_id`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	list := make([]storage.Collaborator, 0)
	for rows.Next() {
		var c storage.Collaborator
		var added int64
		if err := rows.Scan(&c.ProjectID, &c.UserID, &added); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		c.AddedAt = fromMillis(added)
		list = append(list, c)
	}
	return list, rows.Err()
}

// IsCollaborator reports whether userID accepted an invitation to the project.
func (s *Store) IsCollaborator(ctx context.Context, projectID, userID string) (bool, error) {
	var n int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM collaborators WHERE project_id = ? AND user_id = ?`,
		projectID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check collaborator: %w", err)
	}
	return n > 0, nil
}

// mapConstraint translates SQLite constraint failures into storage errors.
func mapConstraint(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: project: %w", op, storage.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
