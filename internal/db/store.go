package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jwulff/attend/internal/attendance"
)

// DefaultLimit caps history queries that do not set one.
const DefaultLimit = 50

// Store reads and writes the attendance log.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Open opens (creating if needed) the database for reading and writing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = FULL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing database without write access.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, readOnly: true}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRecord appends rec to the log, assigning an id when it has none.
func (s *Store) SaveRecord(rec attendance.Record) error {
	if s.readOnly {
		return errors.New("save record: store is read-only")
	}
	if strings.TrimSpace(rec.UserID) == "" {
		return errors.New("save record: user id is required")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO records (id, userId, displayName, kind, message, checkInTime,
			checkOutTime, similarity, distance, detectedImageUrl, recordedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.UserID, rec.DisplayName, string(rec.Kind), rec.Message,
		nullString(rec.CheckInTime), nullString(rec.CheckOutTime),
		rec.Similarity, rec.Distance, nullString(rec.DetectedImageURL),
		unixFromTime(rec.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// RecordsForUser returns a user's records, newest first.
func (s *Store) RecordsForUser(userID string, limit int) ([]attendance.Record, error) {
	rows, err := s.db.Query(selectRecords+`
		WHERE userId = ?
		ORDER BY recordedAt DESC
		LIMIT ?
	`, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentRecords returns the newest records across all users.
func (s *Store) RecentRecords(limit int) ([]attendance.Record, error) {
	rows, err := s.db.Query(selectRecords+`
		ORDER BY recordedAt DESC
		LIMIT ?
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// LatestRecord returns the user's most recent record, or nil if there is none.
func (s *Store) LatestRecord(userID string) (*attendance.Record, error) {
	records, err := s.RecordsForUser(userID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// Users summarizes the log per user, most recently seen first. The display
// name is taken from the user's latest record.
func (s *Store) Users() ([]UserSummary, error) {
	rows, err := s.db.Query(`
		SELECT userId, displayName, COUNT(*), MAX(recordedAt) AS lastSeen
		FROM records
		GROUP BY userId
		ORDER BY lastSeen DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		var lastSeen float64
		if err := rows.Scan(&u.UserID, &u.DisplayName, &u.Records, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.LastSeen = timeFromUnix(lastSeen)
		users = append(users, u)
	}
	return users, rows.Err()
}

const selectRecords = `
	SELECT id, userId, displayName, kind, message, checkInTime, checkOutTime,
		similarity, distance, detectedImageUrl, recordedAt
	FROM records
`

func scanRecords(rows *sql.Rows) ([]attendance.Record, error) {
	var records []attendance.Record
	for rows.Next() {
		var r attendance.Record
		var kind string
		var checkIn, checkOut, imageURL sql.NullString
		var recordedAt float64
		if err := rows.Scan(&r.ID, &r.UserID, &r.DisplayName, &kind, &r.Message,
			&checkIn, &checkOut, &r.Similarity, &r.Distance, &imageURL, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Kind = attendance.Kind(kind)
		r.CheckInTime = checkIn.String
		r.CheckOutTime = checkOut.String
		r.DetectedImageURL = imageURL.String
		r.RecordedAt = timeFromUnix(recordedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
