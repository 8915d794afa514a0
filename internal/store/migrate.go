package store

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bkmr/bkmr/internal/apperr"
)

// schemaVersion is the current structural version of the items/items_fts
// tables. Bump it and append a migration step when the schema changes;
// migrations never drop columns or data.
const schemaVersion = 1

type migrationStep struct {
	version int
	apply   func(*Store) error
}

var migrations = []migrationStep{
	{version: 1, apply: (*Store).migrateV1},
}

// migrate detects the current schema_version and runs every pending step
// in order. When a file-backed store already records a schema version
// (version > 0), a timestamped backup of the file is written first, so a
// failed migration aborts startup with the backup still on disk next to
// the live file. A store at version 0 is migrated without a backup.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return apperr.New(apperr.CodeSchemaError, "failed to create schema_version table", err)
	}

	current, err := s.currentVersion()
	if err != nil {
		return err
	}

	pending := false
	for _, m := range migrations {
		if m.version > current {
			pending = true
			break
		}
	}
	if !pending {
		return nil
	}

	if s.path != "" && current > 0 {
		if _, err := s.backupBeforeMigration(); err != nil {
			return apperr.New(apperr.CodeMigrationFailed, "failed to back up store before migration", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.apply(s); err != nil {
			return apperr.New(apperr.CodeMigrationFailed, fmt.Sprintf("migration %d failed", m.version), err)
		}
		if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
			return apperr.New(apperr.CodeMigrationFailed, "failed to record schema version", err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, m.version); err != nil {
			return apperr.New(apperr.CodeMigrationFailed, "failed to record schema version", err)
		}
	}

	return nil
}

func (s *Store) currentVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if err != nil {
		return 0, nil // no row yet: fresh database at version 0
	}
	return version, nil
}

// backupBeforeMigration copies the live database file to a timestamped
// sibling before structural changes run.
func (s *Store) backupBeforeMigration() (string, error) {
	backupPath := fmt.Sprintf("%s.bak.%s", s.path, time.Now().Format("20060102-150405"))

	src, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return backupPath, nil
}

// migrateV1 creates the items table, its FTS5 mirror, and the triggers
// that keep the mirror in sync.
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		metadata TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '',
		flags INTEGER NOT NULL DEFAULT 0,
		last_update_ts INTEGER NOT NULL,
		created_ts INTEGER,
		embeddable INTEGER NOT NULL DEFAULT 0,
		embedding BLOB,
		content_hash BLOB,
		file_path TEXT,
		file_mtime INTEGER,
		file_hash TEXT,
		access_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
		url, metadata, tags, description,
		content='items',
		content_rowid='id',
		tokenize='unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS items_ai AFTER INSERT ON items BEGIN
		INSERT INTO items_fts(rowid, url, metadata, tags, description)
		VALUES (new.id, new.url, new.metadata, new.tags, new.description);
	END;

	CREATE TRIGGER IF NOT EXISTS items_ad AFTER DELETE ON items BEGIN
		INSERT INTO items_fts(items_fts, rowid, url, metadata, tags, description)
		VALUES ('delete', old.id, old.url, old.metadata, old.tags, old.description);
	END;

	CREATE TRIGGER IF NOT EXISTS items_au AFTER UPDATE ON items BEGIN
		INSERT INTO items_fts(items_fts, rowid, url, metadata, tags, description)
		VALUES ('delete', old.id, old.url, old.metadata, old.tags, old.description);
		INSERT INTO items_fts(rowid, url, metadata, tags, description)
		VALUES (new.id, new.url, new.metadata, new.tags, new.description);
	END;

	CREATE INDEX IF NOT EXISTS idx_items_file_path ON items(file_path);
	`
	_, err := s.db.Exec(schema)
	return err
}
