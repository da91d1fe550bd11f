package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwulff/attend/internal/attendance"
	"github.com/jwulff/attend/internal/logging"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 1 << 20
	verifyPath     = "verify_face/"
	statusPath     = "attendance_status/"
	windowsPath    = "get_times/"
)

// ErrRejected wraps non-2xx replies from the service.
var ErrRejected = errors.New("verification request rejected")

// Client talks to the face verification service.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for image cache-busting.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a client for the service rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse server url: %q is not absolute", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		base:       base,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type requestIDKey struct{}

// WithRequestID tags ctx so outgoing requests carry an X-Request-ID header.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Verify submits frame for userID and interprets the reply. It never fails:
// every error becomes attendance.CaptureFailed.
func (c *Client) Verify(ctx context.Context, frame attendance.Frame, userID string) attendance.Outcome {
	start := c.now()
	resp, err := c.submit(ctx, frame, userID)
	outcome := Interpret(resp, err)

	attrs := []logging.Attr{
		logging.String(logging.FieldRequestID, requestID(ctx)),
		logging.String(logging.FieldUserID, userID),
		logging.String("outcome", fmt.Sprintf("%T", outcome)),
		logging.Duration("elapsed", c.now().Sub(start)),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	c.logger.Debug("verification call finished", logging.Args(attrs...)...)
	return outcome
}

func (c *Client) submit(ctx context.Context, frame attendance.Frame, userID string) (*Response, error) {
	if len(frame.Image) == 0 {
		return nil, fmt.Errorf("submit frame: %w", attendance.ErrCaptureUnavailable)
	}

	body, contentType, err := encodeFrame(frame, userID)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(verifyPath, nil), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if id := requestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post frame: %w", err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp *Response
	decodeErr := json.Unmarshal(data, &resp)
	if decodeErr == nil && resp != nil {
		resp.DetectedImageURL = c.imageURL(resp.DetectedImagePath)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		rejected := fmt.Errorf("%w: status %d", ErrRejected, httpResp.StatusCode)
		if decodeErr != nil || resp == nil {
			return nil, rejected
		}
		return resp, rejected
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("unmarshal response: %w", decodeErr)
	}
	if !resp.usable() {
		return nil, errNoResponse
	}
	return resp, nil
}

func encodeFrame(frame attendance.Frame, userID string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="photo.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(frame.Image); err != nil {
		return nil, "", err
	}

	fields := []struct{ name, value string }{
		{"width", strconv.Itoa(frame.Width)},
		{"height", strconv.Itoa(frame.Height)},
		{"user_id", userID},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// Status fetches whether userID has checked in and out today.
func (c *Client) Status(ctx context.Context, userID string) (StatusResponse, error) {
	var status StatusResponse
	q := url.Values{"user_id": {userID}}
	if err := c.getJSON(ctx, c.endpoint(statusPath, q), &status); err != nil {
		return StatusResponse{}, fmt.Errorf("attendance status: %w", err)
	}
	return status, nil
}

// Windows fetches the configured check-in and check-out windows.
func (c *Client) Windows(ctx context.Context) (Windows, error) {
	var w Windows
	if err := c.getJSON(ctx, c.endpoint(windowsPath, nil), &w); err != nil {
		return Windows{}, fmt.Errorf("attendance windows: %w", err)
	}
	return w, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.ResolveReference(&url.URL{Path: path})
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// imageURL turns the server-relative annotated image path into an absolute
// URL with a cache-busting timestamp.
func (c *Client) imageURL(path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	q := url.Values{"t": {strconv.FormatInt(c.now().UnixMilli(), 10)}}
	return c.endpoint(path, q)
}
