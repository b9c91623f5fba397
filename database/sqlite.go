package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB implements the Database interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// Snapshots, the video task and the archive sweep write concurrently.
	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	if err := initTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// initTables creates the necessary tables if they don't exist
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			date TEXT NOT NULL,
			number INTEGER NOT NULL,
			path TEXT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			ended_at TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS media (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			path TEXT NOT NULL,
			captured_at TIMESTAMP NOT NULL,
			size INTEGER DEFAULT 0,
			status TEXT NOT NULL,
			remote_path TEXT,
			error_message TEXT
		)
	`)
	if err != nil {
		return err
	}

	// Check if remote_path column exists, older catalogs were created without it
	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('media') WHERE name='remote_path'`).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		if _, err = db.Exec(`ALTER TABLE media ADD COLUMN remote_path TEXT`); err != nil {
			return err
		}
		log.Println("Added remote_path column to media table")
	}

	if _, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_media_status ON media (status)`); err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_media_session ON media (session_id)`)
	return err
}

// CreateSession inserts a new session record
func (s *SQLiteDB) CreateSession(session SessionRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, date, number, path, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		session.ID,
		session.Date,
		session.Number,
		session.Path,
		session.StartedAt,
		session.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by its ID. Returns nil, nil when missing.
func (s *SQLiteDB) GetSession(id string) (*SessionRecord, error) {
	var session SessionRecord
	var endedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT id, date, number, path, started_at, ended_at
		FROM sessions
		WHERE id = ?
	`, id).Scan(
		&session.ID,
		&session.Date,
		&session.Number,
		&session.Path,
		&session.StartedAt,
		&endedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}
	return &session, nil
}

// EndSession stamps the end time of a session
func (s *SQLiteDB) EndSession(id string, endedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, endedAt, id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// CreateMedia inserts a new media record
func (s *SQLiteDB) CreateMedia(media MediaRecord) error {
	if media.Status == "" {
		media.Status = StatusLocal
	}
	_, err := s.db.Exec(`
		INSERT INTO media (
			id, session_id, kind, path, captured_at, size, status, remote_path, error_message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		media.ID,
		media.SessionID,
		media.Kind,
		media.Path,
		media.CapturedAt,
		media.Size,
		media.Status,
		media.RemotePath,
		media.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to create media: %w", err)
	}
	return nil
}

// GetMedia retrieves a media record by its ID. Returns nil, nil when missing.
func (s *SQLiteDB) GetMedia(id string) (*MediaRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, kind, path, captured_at, size, status, remote_path, error_message
		FROM media
		WHERE id = ?
	`, id)

	media, err := scanMedia(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media: %w", err)
	}
	return media, nil
}

// ListMediaBySession returns all media of a session ordered by capture time
func (s *SQLiteDB) ListMediaBySession(sessionID string) ([]MediaRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, path, captured_at, size, status, remote_path, error_message
		FROM media
		WHERE session_id = ?
		ORDER BY captured_at ASC, path ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()
	return collectMedia(rows)
}

// ListMediaByStatus returns up to limit media records with the given status, oldest first
func (s *SQLiteDB) ListMediaByStatus(status MediaStatus, limit int) ([]MediaRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, kind, path, captured_at, size, status, remote_path, error_message
		FROM media
		WHERE status = ?
		ORDER BY captured_at ASC
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list media by status: %w", err)
	}
	defer rows.Close()
	return collectMedia(rows)
}

// UpdateMediaStatus updates the archive status of a media record
func (s *SQLiteDB) UpdateMediaStatus(id string, status MediaStatus, remotePath, errorMsg string) error {
	_, err := s.db.Exec(`
		UPDATE media SET status = ?, remote_path = ?, error_message = ? WHERE id = ?
	`, status, remotePath, errorMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update media status: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(row rowScanner) (*MediaRecord, error) {
	var media MediaRecord
	var remotePath, errorMessage sql.NullString

	err := row.Scan(
		&media.ID,
		&media.SessionID,
		&media.Kind,
		&media.Path,
		&media.CapturedAt,
		&media.Size,
		&media.Status,
		&remotePath,
		&errorMessage,
	)
	if err != nil {
		return nil, err
	}

	if remotePath.Valid {
		media.RemotePath = remotePath.String
	}
	if errorMessage.Valid {
		media.ErrorMessage = errorMessage.String
	}
	return &media, nil
}

func collectMedia(rows *sql.Rows) ([]MediaRecord, error) {
	var result []MediaRecord
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		result = append(result, *media)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media rows: %w", err)
	}
	return result, nil
}
