package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/marks/internal/model"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
	lock fileLock
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys and set pragmas for performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db, path: path, lock: newFileLock(path)}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Lock implements Locker.
func (s *SQLiteStorage) Lock(ctx context.Context) (func() error, error) {
	return s.lock.Lock(ctx)
}

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate(ctx context.Context) error {
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(ctx); err != nil {
			return err
		}
	}

	if version < 2 {
		if err := s.migrateV2(ctx); err != nil {
			return err
		}
	}

	return nil
}

// migrateV1 creates the initial schema.
func (s *SQLiteStorage) migrateV1(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			parent_id TEXT,
			color TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			FOREIGN KEY (parent_id) REFERENCES folders(id)
		);

		CREATE INDEX IF NOT EXISTS idx_folders_parent_id ON folders(parent_id);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			thumbnail TEXT NOT NULL DEFAULT '',
			favicon TEXT NOT NULL DEFAULT '',
			folder_id TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_visited TEXT,
			FOREIGN KEY (folder_id) REFERENCES folders(id)
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_folder_id ON bookmarks(folder_id);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// migrateV2 adds notes and position columns so load order matches save order.
func (s *SQLiteStorage) migrateV2(ctx context.Context) error {
	migration := `
		ALTER TABLE bookmarks ADD COLUMN notes TEXT NOT NULL DEFAULT '';
		ALTER TABLE folders ADD COLUMN position INTEGER NOT NULL DEFAULT 0;
		ALTER TABLE bookmarks ADD COLUMN position INTEGER NOT NULL DEFAULT 0;
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.ExecContext(ctx, migration)
	return err
}

// Load reads the store from the SQLite database.
func (s *SQLiteStorage) Load(ctx context.Context) (*model.Store, error) {
	store := &model.Store{
		Folders:   []model.Folder{},
		Bookmarks: []model.Bookmark{},
	}

	// Load folders
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, parent_id, color, created_at
		FROM folders
		ORDER BY position, rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var f model.Folder
		var parentID sql.NullString
		var createdAtStr string

		if err := rows.Scan(&f.ID, &f.Name, &parentID, &f.Color, &createdAtStr); err != nil {
			return nil, err
		}

		if parentID.Valid {
			f.ParentID = &parentID.String
		}
		f.CreatedAt = parseTime(createdAtStr)

		store.Folders = append(store.Folders, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Load bookmarks
	rows, err = s.db.QueryContext(ctx, `
		SELECT id, title, url, description, thumbnail, favicon, notes,
			folder_id, created_at, last_visited
		FROM bookmarks
		ORDER BY position, rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var b model.Bookmark
		var createdAtStr string
		var lastVisitedStr sql.NullString

		if err := rows.Scan(
			&b.ID, &b.Title, &b.URL, &b.Description, &b.Thumbnail, &b.Favicon, &b.Notes,
			&b.FolderID, &createdAtStr, &lastVisitedStr,
		); err != nil {
			return nil, err
		}

		b.CreatedAt = parseTime(createdAtStr)
		if lastVisitedStr.Valid {
			t := parseTime(lastVisitedStr.String)
			b.LastVisited = &t
		}

		store.Bookmarks = append(store.Bookmarks, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return store, nil
}

// Save writes the store to the SQLite database.
// Uses a transaction for atomicity - all or nothing.
func (s *SQLiteStorage) Save(ctx context.Context, store *model.Store) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Folders may reference parents that haven't been inserted yet; check
	// foreign keys at commit instead of per statement.
	if _, err := tx.ExecContext(ctx, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return err
	}

	// Clear existing data
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM folders"); err != nil {
		return err
	}

	// Insert folders
	folderStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO folders (id, name, parent_id, color, created_at, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer folderStmt.Close()

	for i, f := range store.Folders {
		if _, err := folderStmt.ExecContext(ctx,
			f.ID, f.Name, parentColumn(f.ParentID), f.Color, formatTime(f.CreatedAt), i,
		); err != nil {
			return err
		}
	}

	// Insert bookmarks
	bookmarkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bookmarks (id, title, url, description, thumbnail, favicon, notes,
			folder_id, created_at, last_visited, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer bookmarkStmt.Close()

	for i, b := range store.Bookmarks {
		var lastVisited *string
		if b.LastVisited != nil {
			v := formatTime(*b.LastVisited)
			lastVisited = &v
		}

		if _, err := bookmarkStmt.ExecContext(ctx,
			b.ID, b.Title, b.URL, b.Description, b.Thumbnail, b.Favicon, b.Notes,
			b.FolderID, formatTime(b.CreatedAt), lastVisited, i,
		); err != nil {
			return err
		}
	}

	// A failed COMMIT leaves the SQLite transaction open, so violations
	// are caught here while Rollback still applies.
	if err := checkForeignKeys(ctx, tx); err != nil {
		return err
	}

	return tx.Commit()
}

// checkForeignKeys reports the first dangling reference in the transaction.
func checkForeignKeys(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "PRAGMA foreign_key_check")
	if err != nil {
		return err
	}
	defer rows.Close()

	if rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return err
		}
		return fmt.Errorf("%s row %d references a missing %s: %w", table, rowid.Int64, parent, model.ErrInvalidReference)
	}
	return rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

// parentColumn maps an empty parent id to NULL.
func parentColumn(parentID *string) any {
	if parentID == nil || *parentID == "" {
		return nil
	}
	return *parentID
}
