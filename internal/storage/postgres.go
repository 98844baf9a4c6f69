package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nikbrunner/marks/internal/model"
)

// postgresLockKey identifies the advisory lock shared by every marks writer.
const postgresLockKey int64 = 0x6d61726b73

// PostgresStorage implements Storage on PostgreSQL. Foreign keys are
// deferred so a snapshot can be written in any order inside one transaction.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects, pings and applies pending migrations.
func NewPostgresStorage(ctx context.Context, dsn string) (*PostgresStorage, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	if err := migratePostgres(dsn); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

// migratePostgres applies the embedded migrations.
func migratePostgres(dsn string) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a postgres:// DSN to the scheme the pgx migrate
// driver registers.
func migrateURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// Close closes the pool.
func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database answers.
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Load reads the store.
func (s *PostgresStorage) Load(ctx context.Context) (*model.Store, error) {
	store := &model.Store{
		Folders:   []model.Folder{},
		Bookmarks: []model.Bookmark{},
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, parent_id, color, created_at
		FROM folders
		ORDER BY position`)
	if err != nil {
		return nil, err
	}
	folders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Folder, error) {
		var f model.Folder
		var createdAt string
		err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.Color, &createdAt)
		f.CreatedAt = parseTime(createdAt)
		return f, err
	})
	if err != nil {
		return nil, err
	}
	store.Folders = append(store.Folders, folders...)

	rows, err = s.pool.Query(ctx, `
		SELECT id, title, url, description, thumbnail, favicon, notes,
			folder_id, created_at, last_visited
		FROM bookmarks
		ORDER BY position`)
	if err != nil {
		return nil, err
	}
	bookmarks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Bookmark, error) {
		var b model.Bookmark
		var createdAt string
		var lastVisited *string
		err := row.Scan(&b.ID, &b.Title, &b.URL, &b.Description, &b.Thumbnail, &b.Favicon, &b.Notes,
			&b.FolderID, &createdAt, &lastVisited)
		b.CreatedAt = parseTime(createdAt)
		if lastVisited != nil {
			t := parseTime(*lastVisited)
			b.LastVisited = &t
		}
		return b, err
	})
	if err != nil {
		return nil, err
	}
	store.Bookmarks = append(store.Bookmarks, bookmarks...)

	return store, nil
}

// Save rewrites both tables inside one transaction.
func (s *PostgresStorage) Save(ctx context.Context, store *model.Store) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM bookmarks"); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, "DELETE FROM folders"); err != nil {
		return err
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"folders"},
		[]string{"id", "name", "parent_id", "color", "created_at", "position"},
		pgx.CopyFromSlice(len(store.Folders), func(i int) ([]any, error) {
			f := store.Folders[i]
			return []any{f.ID, f.Name, parentColumn(f.ParentID), f.Color, formatTime(f.CreatedAt), i}, nil
		}),
	)
	if err != nil {
		return translatePgError(err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"bookmarks"},
		[]string{"id", "title", "url", "description", "thumbnail", "favicon", "notes",
			"folder_id", "created_at", "last_visited", "position"},
		pgx.CopyFromSlice(len(store.Bookmarks), func(i int) ([]any, error) {
			b := store.Bookmarks[i]
			var lastVisited *string
			if b.LastVisited != nil {
				v := formatTime(*b.LastVisited)
				lastVisited = &v
			}
			return []any{b.ID, b.Title, b.URL, b.Description, b.Thumbnail, b.Favicon, b.Notes,
				b.FolderID, formatTime(b.CreatedAt), lastVisited, i}, nil
		}),
	)
	if err != nil {
		return translatePgError(err)
	}

	return translatePgError(tx.Commit(ctx))
}

// Lock implements Locker with a session advisory lock held on a dedicated
// pool connection.
func (s *PostgresStorage) Lock(ctx context.Context) (func() error, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", postgresLockKey); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return func() error {
		defer conn.Release()
		_, err := conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", postgresLockKey)
		return err
	}, nil
}

// translatePgError maps constraint violations onto model errors.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%s: %w", pgErr.Detail, model.ErrInvalidReference)
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("duplicate id: %s: %w", pgErr.Detail, model.ErrValidation)
	case pgerrcode.NotNullViolation, pgerrcode.CheckViolation:
		return fmt.Errorf("%s: %w", pgErr.Message, model.ErrValidation)
	default:
		return err
	}
}
