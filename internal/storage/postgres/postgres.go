// Package postgres provides the hosted storage.Store backed by PostgreSQL.
//
// SQL is built with goqu (postgres dialect, prepared placeholders) and
// executed through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dshills/sitesmith/internal/engine/project"
	"github.com/dshills/sitesmith/internal/storage"
	"github.com/dshills/sitesmith/internal/storage/postgres/migrations"
)

const (
	dialectPostgres = "postgres"

	tableSubscribers   = "subscribers"
	tableProjects      = "projects"
	tableShareLinks    = "share_links"
	tableInvitations   = "invitations"
	tableCollaborators = "collaborators"
	tableMigrations    = "schema_migrations"

	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

var dialect = goqu.Dialect(dialectPostgres)

// Store persists application state in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open connects to dsn, tunes the pool and applies migrations.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyMigrations(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: pool}, nil
}

// NewFromPool wraps an existing pool. Migrations are not applied.
func NewFromPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.db != nil {
		s.db.Close()
	}
	return nil
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+tableMigrations+` (
    name TEXT PRIMARY KEY,
    applied_at TIMESTAMPTZ NOT NULL
)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, name := range files {
		content, err := fs.ReadFile(migrationFS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		insertSQL, args, err := dialect.Insert(tableMigrations).
			Rows(goqu.Record{"name": name, "applied_at": time.Now().UTC()}).
			OnConflict(goqu.DoNothing()).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("build migration record: %w", err)
		}

		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, insertSQL, args...)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			_, err = tx.Exec(ctx, string(content))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// UpsertSubscriber inserts the email or refreshes its updated_at.
func (s *Store) UpsertSubscriber(ctx context.Context, email string, at time.Time) (storage.Subscriber, error) {
	query, args, err := dialect.Insert(tableSubscribers).
		Rows(goqu.Record{"email": email, "created_at": at.UTC(), "updated_at": at.UTC()}).
		OnConflict(goqu.DoUpdate("email", goqu.Record{"updated_at": goqu.I("excluded.updated_at")})).
		Returning("email", "created_at", "updated_at").
		Prepared(true).ToSQL()
	if err != nil {
		return storage.Subscriber{}, fmt.Errorf("building the upsert failed: %w", err)
	}

	var sub storage.Subscriber
	if err := s.db.QueryRow(ctx, query, args...).Scan(&sub.Email, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return storage.Subscriber{}, fmt.Errorf("upsert subscriber: %w", err)
	}
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

	query, args, err := dialect.Insert(tableProjects).
		Rows(goqu.Record{
			"id":         p.ID,
			"owner_id":   p.OwnerID,
			"title":      p.Title,
			"payload":    payload,
			"published":  p.Published,
			"updated_at": updatedAt.UTC(),
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"title":      goqu.I("excluded.title"),
			"payload":    goqu.I("excluded.payload"),
			"updated_at": goqu.I("excluded.updated_at"),
		}).Where(goqu.I("projects.owner_id").Eq(goqu.I("excluded.owner_id")))).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building the upsert failed: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save project %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save project %s: owned by another user: %w", p.ID, storage.ErrConflict)
	}
	return nil
}

// GetProject loads a project snapshot.
func (s *Store) GetProject(ctx context.Context, id string) (project.Project, error) {
	query, args, err := dialect.From(tableProjects).
		Select("payload", "published").
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return project.Project{}, fmt.Errorf("building the query failed: %w", err)
	}

	var payload []byte
	var published bool
	err = s.db.QueryRow(ctx, query, args...).Scan(&payload, &published)
	if errors.Is(err, pgx.ErrNoRows) {
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
	query, args, err := dialect.From(tableProjects).
		Select("id", "owner_id", "title", "published", "published_at", "updated_at").
		Where(goqu.Ex{"owner_id": ownerID}).
		Order(goqu.I("updated_at").Desc(), goqu.I("id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building the query failed: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	list := make([]storage.ProjectSummary, 0)
	for rows.Next() {
		var sum storage.ProjectSummary
		if err := rows.Scan(&sum.ID, &sum.OwnerID, &sum.Title, &sum.Published, &sum.PublishedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		list = append(list, sum)
	}
	return list, rows.Err()
}

// PublishProject marks the project published at the given time.
func (s *Store) PublishProject(ctx context.Context, id string, at time.Time) error {
	query, args, err := dialect.Update(tableProjects).
		Set(goqu.Record{"published": true, "published_at": at.UTC()}).
		Where(goqu.Ex{"id": id}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building the update failed: %w", err)
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("publish project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("project %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// CreateShareLink stores a new share link.
func (s *Store) CreateShareLink(ctx context.Context, link storage.ShareLink) error {
	query, args, err := dialect.Insert(tableShareLinks).
		Rows(goqu.Record{
			"token":      link.Token,
			"project_id": link.ProjectID,
			"created_by": link.CreatedBy,
			"created_at": link.CreatedAt.UTC(),
			"expires_at": link.ExpiresAt.UTC(),
		}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building the insert failed: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return mapConstraint("create share link", err)
	}
	return nil
}

// ResolveShareLink returns a live share link.
func (s *Store) ResolveShareLink(ctx context.Context, token string, now time.Time) (storage.ShareLink, error) {
	query, args, err := dialect.From(tableShareLinks).
		Select("token", "project_id", "created_by", "created_at", "expires_at").
		Where(goqu.Ex{"token": token}).
		Prepared(true).ToSQL()
	if err != nil {
		return storage.ShareLink{}, fmt.Errorf("building the query failed: %w", err)
	}

	var link storage.ShareLink
	err = s.db.QueryRow(ctx, query, args...).
		Scan(&link.Token, &link.ProjectID, &link.CreatedBy, &link.CreatedAt, &link.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ShareLink{}, fmt.Errorf("share link: %w", storage.ErrNotFound)
	}
	if err != nil {
		return storage.ShareLink{}, fmt.Errorf("resolve share link: %w", err)
	}
	if link.Expired(now) {
		return storage.ShareLink{}, fmt.Errorf("share link: %w", storage.ErrExpired)
	}
	return link, nil
}

// CreateInvitation stores a pending invitation.
func (s *Store) CreateInvitation(ctx context.Context, inv storage.Invitation) error {
	query, args, err := dialect.Insert(tableInvitations).
		Rows(goqu.Record{
			"token":      inv.Token,
			"project_id": inv.ProjectID,
			"email":      inv.Email,
			"invited_by": inv.InvitedBy,
			"created_at": inv.CreatedAt.UTC(),
			"expires_at": inv.ExpiresAt.UTC(),
		}).
		Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building the insert failed: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return mapConstraint("create invitation", err)
	}
	return nil
}

// GetInvitation loads an invitation by token.
func (s *Store) GetInvitation(ctx context.Context, token string) (storage.Invitation, error) {
	return getInvitation(ctx, s.db, token, false)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getInvitation(ctx context.Context, q queryRower, token string, forUpdate bool) (storage.Invitation, error) {
	ds := dialect.From(tableInvitations).
		Select("token", "project_id", "email", "invited_by", "created_at", "expires_at", "accepted_by", "accepted_at").
		Where(goqu.Ex{"token": token})
	if forUpdate {
		ds = ds.ForUpdate(goqu.Wait)
	}
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return storage.Invitation{}, fmt.Errorf("building the query failed: %w", err)
	}

	var inv storage.Invitation
	var acceptedBy *string
	err = q.QueryRow(ctx, query, args...).Scan(
		&inv.Token, &inv.ProjectID, &inv.Email, &inv.InvitedBy,
		&inv.CreatedAt, &inv.ExpiresAt, &acceptedBy, &inv.AcceptedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Invitation{}, fmt.Errorf("invitation: %w", storage.ErrNotFound)
	}
	if err != nil {
		return storage.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	if acceptedBy != nil {
		inv.AcceptedBy = *acceptedBy
	}
	return inv, nil
}

// AcceptInvitation marks the invitation used and adds userID as a collaborator.
func (s *Store) AcceptInvitation(ctx context.Context, token, userID string, at time.Time) (storage.Invitation, error) {
	var result storage.Invitation
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		inv, err := getInvitation(ctx, tx, token, true)
		if err != nil {
			return err
		}
		if inv.Accepted() {
			if inv.AcceptedBy == userID {
				result = inv
				return nil
			}
			return fmt.Errorf("invitation already accepted: %w", storage.ErrConflict)
		}
		if inv.Expired(at) {
			return fmt.Errorf("invitation: %w", storage.ErrExpired)
		}

		update, args, err := dialect.Update(tableInvitations).
			Set(goqu.Record{"accepted_by": userID, "accepted_at": at.UTC()}).
			Where(goqu.Ex{"token": token}).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("building the update failed: %w", err)
		}
		if _, err := tx.Exec(ctx, update, args...); err != nil {
			return fmt.Errorf("accept invitation: %w", err)
		}

		insert, args, err := dialect.Insert(tableCollaborators).
			Rows(goqu.Record{"project_id": inv.ProjectID, "user_id": userID, "added_at": at.UTC()}).
			OnConflict(goqu.DoNothing()).
			Prepared(true).ToSQL()
		if err != nil {
			return fmt.Errorf("building the insert failed: %w", err)
		}
		if _, err := tx.Exec(ctx, insert, args...); err != nil {
			return fmt.Errorf("add collaborator: %w", err)
		}

		acceptedAt := at.UTC()
		inv.AcceptedBy = userID
		inv.AcceptedAt = &acceptedAt
		result = inv
		return nil
	})
	if err != nil {
		return storage.Invitation{}, err
	}
	return result, nil
}

// ListCollaborators returns collaborators in the order they joined.
func (s *Store) ListCollaborators(ctx context.Context, projectID string) ([]storage.Collaborator, error) {
	query, args, err := dialect.From(tableCollaborators).
		Select("project_id", "user_id", "added_at").
		Where(goqu.Ex{"project_id": projectID}).
		Order(goqu.I("added_at").Asc(), goqu.I("user_id").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building the query failed: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	list := make([]storage.Collaborator, 0)
	for rows.Next() {
		var c storage.Collaborator
		if err := rows.Scan(&c.ProjectID, &c.UserID, &c.AddedAt); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// IsCollaborator reports whether userID accepted an invitation to the project.
func (s *Store) IsCollaborator(ctx context.Context, projectID, userID string) (bool, error) {
	query, args, err := dialect.From(tableCollaborators).
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"project_id": projectID, "user_id": userID}).
		Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("building the query failed: %w", err)
	}

	var n int64
	if err := s.db.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("check collaborator: %w", err)
	}
	return n > 0, nil
}

// mapConstraint translates Postgres constraint violations into storage errors.
func mapConstraint(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, storage.ErrConflict)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: project: %w", op, storage.ErrNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
