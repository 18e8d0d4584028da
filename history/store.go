// Package history persists posting outcomes so repeated runs can avoid
// duplicate topics and the CLI can show what happened.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one completed or failed posting attempt.
type Record struct {
	ID        int64
	Topic     string
	Title     string
	URL       string
	Stage     string
	Error     string
	CreatedAt time.Time
}

// timeLayout is the text form created_at is stored in, always UTC. Writing
// the timestamp from Go keeps inserts and cutoff comparisons in one zone;
// CURRENT_TIMESTAMP text against a driver-bound local time.Time is not
// comparable once the process runs outside UTC.
const timeLayout = "2006-01-02 15:04:05"

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database and runs migrations.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		topic TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC);`)
	return err
}

// Add stores one attempt outcome.
func (s *Store) Add(r Record) error {
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO posts (topic, title, url, stage, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.Topic, r.Title, r.URL, r.Stage, r.Error, created.UTC().Format(timeLayout),
	)
	return err
}

// Recent returns up to count records, newest first.
func (s *Store) Recent(count int) ([]Record, error) {
	if count <= 0 {
		count = 10
	}
	rows, err := s.db.Query(
		`SELECT id, topic, title, url, stage, error, created_at
		 FROM posts ORDER BY id DESC LIMIT ?`, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Topic, &r.Title, &r.URL, &r.Stage, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PostedRecently reports whether a successful post for the topic exists
// within the window.
func (s *Store) PostedRecently(topic string, window time.Duration) (bool, error) {
	cutoff := time.Now().Add(-window).UTC().Format(timeLayout)
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM posts WHERE topic = ? AND url != '' AND created_at >= ?`,
		topic, cutoff,
	).Scan(&n)
	return n > 0, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
