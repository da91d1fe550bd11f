package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/db"
)

func seededStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(filepath.Join(t.TempDir(), "attend.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	records := []attendance.Record{
		{UserID: "u1", DisplayName: "Ada", Kind: attendance.KindCheckIn, Message: attendance.MessageCheckIn, CheckInTime: "09:00", RecordedAt: base},
		{UserID: "u2", DisplayName: "Grace", Kind: attendance.KindCheckIn, Message: attendance.MessageCheckIn, RecordedAt: base.Add(time.Minute)},
		{UserID: "u1", DisplayName: "Ada", Kind: attendance.KindCheckOut, Message: attendance.MessageCheckOut, CheckOutTime: "17:00", RecordedAt: base.Add(8 * time.Hour)},
	}
	for _, r := range records {
		if err := store.SaveRecord(r); err != nil {
			t.Fatalf("SaveRecord: %v", err)
		}
	}
	return store
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := mcp.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("content = %T, want text", res.Content[0])
	}
	return text.Text
}

func TestHistoryForUser(t *testing.T) {
	s := New(seededStore(t), "test", nil)

	res, err := s.handleHistory(context.Background(), callRequest(map[string]any{"user_id": "u1"}))
	if err != nil {
		t.Fatalf("handleHistory: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var views []recordView
	if err := json.Unmarshal([]byte(resultText(t, res)), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("records = %d, want 2", len(views))
	}
	if views[0].Kind != "check_out" || views[0].CheckOutTime != "17:00" {
		t.Errorf("newest = %+v", views[0])
	}
}

func TestHistoryAllUsersWithLimit(t *testing.T) {
	s := New(seededStore(t), "test", nil)

	res, err := s.handleHistory(context.Background(), callRequest(map[string]any{"limit": float64(2)}))
	if err != nil {
		t.Fatal(err)
	}
	var views []recordView
	if err := json.Unmarshal([]byte(resultText(t, res)), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("records = %d, want 2", len(views))
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	s := New(seededStore(t), "test", nil)
	res, err := s.handleHistory(context.Background(), callRequest(map[string]any{"limit": float64(0)}))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for limit 0")
	}
}

func TestLatest(t *testing.T) {
	s := New(seededStore(t), "test", nil)

	res, err := s.handleLatest(context.Background(), callRequest(map[string]any{"user_id": "u2"}))
	if err != nil {
		t.Fatal(err)
	}
	var view recordView
	if err := json.Unmarshal([]byte(resultText(t, res)), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.DisplayName != "Grace" {
		t.Errorf("display name = %q", view.DisplayName)
	}

	res, err = s.handleLatest(context.Background(), callRequest(map[string]any{"user_id": "nobody"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "no attendance recorded") {
		t.Errorf("text = %q", resultText(t, res))
	}

	res, err = s.handleLatest(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsError {
		t.Error("missing user_id should be a tool error")
	}
}

func TestUsers(t *testing.T) {
	s := New(seededStore(t), "test", nil)
	res, err := s.handleUsers(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	var views []userView
	if err := json.Unmarshal([]byte(resultText(t, res)), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 || views[0].UserID != "u1" || views[0].Records != 2 {
		t.Fatalf("users = %+v", views)
	}
}

type brokenStore struct{}

func (brokenStore) RecordsForUser(string, int) ([]attendance.Record, error) {
	return nil, errors.New("database is locked")
}
func (brokenStore) RecentRecords(int) ([]attendance.Record, error) {
	return nil, errors.New("database is locked")
}
func (brokenStore) LatestRecord(string) (*attendance.Record, error) {
	return nil, errors.New("database is locked")
}
func (brokenStore) Users() ([]db.UserSummary, error) { return nil, errors.New("database is locked") }

func TestStoreErrorsBecomeToolErrors(t *testing.T) {
	s := New(brokenStore{}, "test", nil)
	ctx := context.Background()

	for name, call := range map[string]func() (*mcp.CallToolResult, error){
		"history": func() (*mcp.CallToolResult, error) { return s.handleHistory(ctx, callRequest(nil)) },
		"latest":  func() (*mcp.CallToolResult, error) { return s.handleLatest(ctx, callRequest(map[string]any{"user_id": "u1"})) },
		"users":   func() (*mcp.CallToolResult, error) { return s.handleUsers(ctx, callRequest(nil)) },
	} {
		res, err := call()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !res.IsError || !strings.Contains(resultText(t, res), "locked") {
			t.Errorf("%s: result = %+v", name, res)
		}
	}
}
