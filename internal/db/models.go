// Package db keeps the kiosk's local attendance log in SQLite.
package db

import "time"

const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		userId TEXT NOT NULL,
		displayName TEXT NOT NULL,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		checkInTime TEXT,
		checkOutTime TEXT,
		similarity REAL NOT NULL DEFAULT 0,
		distance REAL NOT NULL DEFAULT 0,
		detectedImageUrl TEXT,
		recordedAt REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_user_time ON records(userId, recordedAt DESC);
`

// UserSummary aggregates the log for one user.
type UserSummary struct {
	UserID      string
	DisplayName string
	Records     int
	LastSeen    time.Time
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
