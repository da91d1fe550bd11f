package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jwulff/attend/internal/attendance"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "attend.sqlite")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func record(user string, kind attendance.Kind, at time.Time) attendance.Record {
	return attendance.Record{
		UserID:      user,
		DisplayName: "User " + user,
		Kind:        kind,
		Message:     attendance.MessageCheckIn,
		CheckInTime: "08:59",
		Similarity:  0.93,
		Distance:    0.21,
		RecordedAt:  at,
	}
}

func TestSaveAndReadRecords(t *testing.T) {
	store, _ := openTestStore(t)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first := record("u1", attendance.KindCheckIn, base)
	first.DetectedImageURL = "http://svc/detected/a.jpg?t=1"
	if err := store.SaveRecord(first); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	second := record("u1", attendance.KindCheckOut, base.Add(8*time.Hour))
	second.Message = attendance.MessageCheckOut
	second.CheckOutTime = "17:00"
	if err := store.SaveRecord(second); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if err := store.SaveRecord(record("u2", attendance.KindAlreadyLogged, base.Add(time.Hour))); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	records, err := store.RecordsForUser("u1", 10)
	if err != nil {
		t.Fatalf("RecordsForUser: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}
	if records[0].Kind != attendance.KindCheckOut {
		t.Errorf("newest kind = %q, want %q", records[0].Kind, attendance.KindCheckOut)
	}
	if records[0].CheckOutTime != "17:00" {
		t.Errorf("checkOutTime = %q", records[0].CheckOutTime)
	}
	if records[1].DetectedImageURL != first.DetectedImageURL {
		t.Errorf("detectedImageURL = %q", records[1].DetectedImageURL)
	}
	if records[1].ID == "" {
		t.Error("expected generated id")
	}
	if !records[1].RecordedAt.Equal(base) {
		t.Errorf("recordedAt = %v, want %v", records[1].RecordedAt, base)
	}
	if records[1].Similarity != 0.93 {
		t.Errorf("similarity = %v", records[1].Similarity)
	}
}

func TestRecentRecordsLimit(t *testing.T) {
	store, _ := openTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		if err := store.SaveRecord(record("u1", attendance.KindVerified, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.RecentRecords(3)
	if err != nil {
		t.Fatalf("RecentRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if !records[0].RecordedAt.After(records[2].RecordedAt) {
		t.Error("records should be newest first")
	}
}

func TestLatestRecord(t *testing.T) {
	store, _ := openTestStore(t)

	rec, err := store.LatestRecord("nobody")
	if err != nil {
		t.Fatalf("LatestRecord: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for unknown user, got %+v", rec)
	}

	base := time.Now()
	_ = store.SaveRecord(record("u1", attendance.KindCheckIn, base.Add(-time.Hour)))
	_ = store.SaveRecord(record("u1", attendance.KindCheckOut, base))

	rec, err = store.LatestRecord("u1")
	if err != nil {
		t.Fatalf("LatestRecord: %v", err)
	}
	if rec == nil || rec.Kind != attendance.KindCheckOut {
		t.Fatalf("latest = %+v, want check_out", rec)
	}
}

func TestSaveRecordRequiresUser(t *testing.T) {
	store, _ := openTestStore(t)
	if err := store.SaveRecord(attendance.Record{Kind: attendance.KindVerified}); err == nil {
		t.Fatal("expected error for missing user id")
	}
}

func TestUsersSummary(t *testing.T) {
	store, _ := openTestStore(t)
	base := time.Now().Add(-2 * time.Hour)

	_ = store.SaveRecord(record("u1", attendance.KindCheckIn, base))
	_ = store.SaveRecord(record("u2", attendance.KindCheckIn, base.Add(30*time.Minute)))
	renamed := record("u1", attendance.KindCheckOut, base.Add(time.Hour))
	renamed.DisplayName = "Ada Lovelace"
	_ = store.SaveRecord(renamed)

	users, err := store.Users()
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	if users[0].UserID != "u1" || users[0].Records != 2 {
		t.Errorf("users[0] = %+v", users[0])
	}
	if users[0].DisplayName != "Ada Lovelace" {
		t.Errorf("displayName = %q, want latest name", users[0].DisplayName)
	}
}

func TestOpenReadOnly(t *testing.T) {
	store, path := openTestStore(t)
	if err := store.SaveRecord(record("u1", attendance.KindCheckIn, time.Now())); err != nil {
		t.Fatal(err)
	}
	store.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()

	records, err := ro.RecordsForUser("u1", 0)
	if err != nil {
		t.Fatalf("RecordsForUser: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if err := ro.SaveRecord(record("u1", attendance.KindCheckOut, time.Now())); err == nil {
		t.Fatal("expected read-only store to refuse writes")
	}
}

func TestOpenReadOnlyRejectsDirectory(t *testing.T) {
	if _, err := OpenReadOnly(t.TempDir()); err == nil {
		t.Fatal("expected error opening a directory as a database")
	}
}

func TestOpenReadOnlyMissing(t *testing.T) {
	if _, err := OpenReadOnly(filepath.Join(t.TempDir(), "missing.sqlite")); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestTimeFromUnix(t *testing.T) {
	want := time.Date(2026, 1, 2, 3, 4, 5, 500_000_000, time.UTC)
	got := timeFromUnix(unixFromTime(want))
	if d := got.Sub(want); d > time.Millisecond || d < -time.Millisecond {
		t.Fatalf("round trip drift %v", d)
	}
}
