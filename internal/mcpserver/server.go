// Package mcpserver exposes the local attendance log to MCP clients over
// stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/db"
	"github.com/jwulff/attend/internal/logging"
)

const (
	serverName   = "attend"
	defaultLimit = 20
	maxLimit     = 500
)

// Store is the read side of the attendance log.
type Store interface {
	RecordsForUser(userID string, limit int) ([]attendance.Record, error)
	RecentRecords(limit int) ([]attendance.Record, error)
	LatestRecord(userID string) (*attendance.Record, error)
	Users() ([]db.UserSummary, error)
}

// recordView is the JSON shape returned to clients.
type recordView struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	DisplayName      string  `json:"display_name"`
	Kind             string  `json:"kind"`
	Message          string  `json:"message"`
	CheckInTime      string  `json:"check_in_time,omitempty"`
	CheckOutTime     string  `json:"check_out_time,omitempty"`
	Similarity       float64 `json:"similarity,omitempty"`
	Distance         float64 `json:"distance,omitempty"`
	DetectedImageURL string  `json:"detected_image_url,omitempty"`
	RecordedAt       string  `json:"recorded_at"`
}

type userView struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Records     int    `json:"records"`
	LastSeen    string `json:"last_seen"`
}

// Server wires the attendance tools to a store.
type Server struct {
	store  Store
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New builds the MCP server and registers its tools.
func New(store Store, version string, logger *slog.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logging.NewComponentLogger(logger, "mcp"),
		mcp: server.NewMCPServer(serverName, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(mcp.NewTool("attendance_history",
		mcp.WithDescription("List recorded check-ins and check-outs, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("user_id", mcp.Description("Only records for this user. Omit for all users.")),
		mcp.WithNumber("limit", mcp.Description("Maximum records to return."), mcp.Min(1), mcp.Max(maxLimit)),
	), s.handleHistory)

	s.mcp.AddTool(mcp.NewTool("attendance_latest",
		mcp.WithDescription("Return the most recent attendance record for a user."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User to look up.")),
	), s.handleLatest)

	s.mcp.AddTool(mcp.NewTool("attendance_users",
		mcp.WithDescription("List users seen by this kiosk with record counts."),
		mcp.WithReadOnlyHintAnnotation(true),
	), s.handleUsers)

	return s
}

// Serve answers requests on in/out until ctx ends.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("mcp server listening on stdio")
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

func (s *Server) handleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := req.GetString("user_id", "")
	limit := req.GetInt("limit", defaultLimit)
	if limit <= 0 || limit > maxLimit {
		return mcp.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", maxLimit)), nil
	}

	var (
		records []attendance.Record
		err     error
	)
	if userID != "" {
		records, err = s.store.RecordsForUser(userID, limit)
	} else {
		records, err = s.store.RecentRecords(limit)
	}
	if err != nil {
		s.logger.Warn("history query failed", logging.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}

	views := make([]recordView, 0, len(records))
	for _, r := range records {
		views = append(views, toView(r))
	}
	return jsonResult(views)
}

func (s *Server) handleLatest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil || userID == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}

	rec, err := s.store.LatestRecord(userID)
	if err != nil {
		s.logger.Warn("latest query failed", logging.Error(err), logging.String(logging.FieldUserID, userID))
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rec == nil {
		return mcp.NewToolResultText(fmt.Sprintf("no attendance recorded for %s", userID)), nil
	}
	return jsonResult(toView(*rec))
}

func (s *Server) handleUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	users, err := s.store.Users()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	views := make([]userView, 0, len(users))
	for _, u := range users {
		views = append(views, userView{
			UserID:      u.UserID,
			DisplayName: u.DisplayName,
			Records:     u.Records,
			LastSeen:    u.LastSeen.Format(time.RFC3339),
		})
	}
	return jsonResult(views)
}

func toView(r attendance.Record) recordView {
	return recordView{
		ID:               r.ID,
		UserID:           r.UserID,
		DisplayName:      r.DisplayName,
		Kind:             string(r.Kind),
		Message:          r.Message,
		CheckInTime:      r.CheckInTime,
		CheckOutTime:     r.CheckOutTime,
		Similarity:       r.Similarity,
		Distance:         r.Distance,
		DetectedImageURL: r.DetectedImageURL,
		RecordedAt:       r.RecordedAt.Format(time.RFC3339),
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
