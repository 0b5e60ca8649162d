package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id        TEXT PRIMARY KEY,
	parent_id TEXT NOT NULL DEFAULT '',
	title     TEXT NOT NULL DEFAULT '',
	created   INTEGER NOT NULL,
	updated   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	parent_id  TEXT NOT NULL DEFAULT '',
	seq        INTEGER NOT NULL,
	type       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated);
`

// Session is a persisted session record.
type Session struct {
	ID       string
	ParentID string
	Title    string
	Created  time.Time
	Updated  time.Time
}

// Store is a SQLite-backed session store.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens a session database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	// SQLite pragmas for performance.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// CreateSession inserts a new session. parentID may be empty for a root
// session; a non-empty parentID links the new session as a child (handoff).
func (s *Store) CreateSession(parentID string) (*Session, error) {
	if s == nil {
		return nil, fmt.Errorf("store not open")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess := &Session{
		ID:       uuid.NewString(),
		ParentID: parentID,
		Created:  now,
		Updated:  now,
	}
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, parent_id, title, created, updated) VALUES (?, ?, '', ?, ?)",
		sess.ID, sess.ParentID, now.Unix(), now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// SetTitle updates a session's title.
func (s *Store) SetTitle(sessionID, title string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("UPDATE sessions SET title = ?, updated = ? WHERE id = ?",
		title, time.Now().Unix(), sessionID)
	return err
}

// AppendEntry appends an entry to the session log, assigning an ID and the
// next sequence number. The entry's parent pointer defaults to the previous
// entry on the branch.
func (s *Store) AppendEntry(sessionID string, e Entry) (Entry, error) {
	if s == nil {
		return e, fmt.Errorf("store not open")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	var seq sql.NullInt64
	var lastID sql.NullString
	err := s.db.QueryRow(
		"SELECT MAX(seq), (SELECT id FROM entries WHERE session_id = ? ORDER BY seq DESC LIMIT 1) FROM entries WHERE session_id = ?",
		sessionID, sessionID,
	).Scan(&seq, &lastID)
	if err != nil {
		return e, fmt.Errorf("next seq: %w", err)
	}
	next := int64(0)
	if seq.Valid {
		next = seq.Int64 + 1
	}
	if e.ParentID == "" && lastID.Valid {
		e.ParentID = lastID.String
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("marshal entry: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO entries (id, session_id, parent_id, seq, type, payload, created) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, sessionID, e.ParentID, next, string(e.Type), string(payload), e.Timestamp.Unix(),
	)
	if err != nil {
		return e, fmt.Errorf("append entry: %w", err)
	}

	// Touch session updated time.
	s.db.Exec("UPDATE sessions SET updated = ? WHERE id = ?", time.Now().Unix(), sessionID) //nolint:errcheck

	return e, nil
}

// AppendCustomEntry appends a custom extension entry with JSON-encoded data.
func (s *Store) AppendCustomEntry(sessionID, customType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal custom data: %w", err)
	}
	_, err = s.AppendEntry(sessionID, Entry{
		Type:       EntryCustom,
		CustomType: customType,
		Data:       raw,
	})
	return err
}

// Branch returns a session's entries in root-to-leaf order.
func (s *Store) Branch(sessionID string) ([]Entry, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT payload FROM entries WHERE session_id = ? ORDER BY seq", sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load branch: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("skipping undecodable entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Sessions lists all sessions, most recently updated first.
func (s *Store) Sessions() ([]Session, error) {
	if s == nil {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT id, parent_id, title, created, updated FROM sessions ORDER BY updated DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.ParentID, &sess.Title, &created, &updated); err != nil {
			continue
		}
		sess.Created = time.Unix(created, 0)
		sess.Updated = time.Unix(updated, 0)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// LatestSession returns the most recently updated session, or nil when the
// store is empty.
func (s *Store) LatestSession() (*Session, error) {
	sessions, err := s.Sessions()
	if err != nil || len(sessions) == 0 {
		return nil, err
	}
	return &sessions[0], nil
}
