package cache

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"osusync/dotosu"
)

const schema = `CREATE TABLE IF NOT EXISTS beatmaps (
	path     TEXT PRIMARY KEY,
	mod_time INTEGER NOT NULL,
	content  BLOB NOT NULL
)`

// SQLite persists raw beatmap text between runs. An entry is only served while
// the file's modification time matches the one it was stored with.
type SQLite struct {
	db      *sql.DB
	decoder *dotosu.Decoder
	log     logrus.FieldLogger
}

func OpenSQLite(dsn string, decoder *dotosu.Decoder, logger logrus.FieldLogger) (*SQLite, error) {
	if decoder == nil {
		decoder = dotosu.NewDecoder(logger)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", dsn, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logger.WithError(err).WithField("pragma", pragma).Debug("sqlite pragma failed")
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create beatmap cache table: %w", err)
	}
	return &SQLite{db: db, decoder: decoder, log: logger}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Load(path string) (*dotosu.Beatmap, error) {
	k := key(path)
	info, err := os.Stat(k)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", dotosu.ErrFileNotFound, err)
		}
		return nil, err
	}
	mtime := info.ModTime().UnixNano()

	var content []byte
	err = s.db.QueryRow(`SELECT content FROM beatmaps WHERE path = ? AND mod_time = ?`, k, mtime).Scan(&content)
	switch {
	case err == nil:
		s.log.WithField("path", k).Debug("beatmap cache hit")
		return s.decoder.Decode(bytes.NewReader(content))
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("query beatmap cache: %w", err)
	}

	content, err = os.ReadFile(k)
	if err != nil {
		return nil, err
	}
	b, err := s.decoder.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(
		`INSERT INTO beatmaps (path, mod_time, content) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET mod_time = excluded.mod_time, content = excluded.content`,
		k, mtime, content,
	)
	if err != nil {
		return nil, fmt.Errorf("store beatmap %s: %w", k, err)
	}
	return b, nil
}

func (s *SQLite) Invalidate(path string) error {
	_, err := s.db.Exec(`DELETE FROM beatmaps WHERE path = ?`, key(path))
	return err
}

func (s *SQLite) Clear() error {
	_, err := s.db.Exec(`DELETE FROM beatmaps`)
	return err
}

func (s *SQLite) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM beatmaps`).Scan(&n)
	return n, err
}
