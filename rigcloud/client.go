package rigcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoBasePath is returned when a request is made before LoadConfig
var ErrNoBasePath = errors.New("rigcloud: base path not loaded")

// APIError is a non-2xx answer from the backend
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rigcloud: HTTP %d", e.Status)
	}
	return fmt.Sprintf("rigcloud: HTTP %d: %s", e.Status, e.Message)
}

// Flightsheet is a stored command template as listed by the backend
type Flightsheet struct {
	ID    string `json:"FlightsheetId"`
	Value string `json:"Value"`
}

// FlightsheetEntry is one entry of a flightsheet PUT body
type FlightsheetEntry struct {
	Key   string `json:"key"`
	GPU   int    `json:"gpu"`
	Value string `json:"value"`
}

// RawCommandKey is the entry key the editor stores its text under
const RawCommandKey = "RAW_COMMAND"

// Client talks to the rig-cloud HTTP API
type Client struct {
	origin     string
	path       string
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.RWMutex
	basePath string
	loaded   bool
}

// NewClient creates a client for the backend at origin (scheme://host[:port]).
// path is the prefix the console was mounted under, e.g. "/dashboard".
func NewClient(origin, path string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		origin:     strings.TrimRight(origin, "/"),
		path:       strings.TrimRight(path, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// LoadConfig fetches {origin}{path}/api/config and stores its basePath.
// Every other request is built from that base.
func (c *Client) LoadConfig(ctx context.Context) error {
	var cfg struct {
		BasePath string `json:"basePath"`
	}
	if err := c.do(ctx, http.MethodGet, c.origin+c.path+"/api/config", nil, &cfg); err != nil {
		return fmt.Errorf("load app config: %w", err)
	}

	c.mu.Lock()
	c.basePath = strings.TrimRight(cfg.BasePath, "/")
	c.loaded = true
	c.mu.Unlock()

	c.logger.Info("Loaded backend config", zap.String("base_path", cfg.BasePath))
	return nil
}

// BasePath returns the path prefix loaded by LoadConfig
func (c *Client) BasePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.basePath
}

func (c *Client) endpoint(p string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return "", ErrNoBasePath
	}
	return c.origin + c.basePath + p, nil
}

// StreamURL returns the websocket URL of the telemetry stream
func (c *Client) StreamURL() (string, error) {
	raw, err := c.endpoint("/ws")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse stream url: %w", err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// SendCommand posts one command for a set of rigs
func (c *Client) SendCommand(ctx context.Context, rigs []string, command string) error {
	u, err := c.endpoint("/command")
	if err != nil {
		return err
	}
	body := struct {
		Rigs    []string `json:"rigs"`
		Command string   `json:"command"`
	}{Rigs: rigs, Command: command}

	if err := c.do(ctx, http.MethodPost, u, body, nil); err != nil {
		return fmt.Errorf("send command %q: %w", command, err)
	}
	c.logger.Debug("Sent command", zap.String("command", command), zap.Int("rigs", len(rigs)))
	return nil
}

// Reset asks the backend to forget every known rig
func (c *Client) Reset(ctx context.Context) error {
	u, err := c.endpoint("/reset")
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, u, nil, nil); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

// FetchRigs fetches the full rig map. Both the wrapped {"rigs": {...}} and
// the bare map answer shapes are accepted.
func (c *Client) FetchRigs(ctx context.Context) (map[string]RigEntry, error) {
	u, err := c.endpoint("/rigs")
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, u, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch rigs: %w", err)
	}

	var wrapped struct {
		Rigs map[string]RigEntry `json:"rigs"`
	}
	if err := codec.Unmarshal(raw, &wrapped); err == nil && wrapped.Rigs != nil {
		return wrapped.Rigs, nil
	}

	rigs := make(map[string]RigEntry)
	if err := codec.Unmarshal(raw, &rigs); err != nil {
		return nil, fmt.Errorf("decode rigs: %w", err)
	}
	return rigs, nil
}

// ListFlightsheets returns every stored flightsheet
func (c *Client) ListFlightsheets(ctx context.Context) ([]Flightsheet, error) {
	u, err := c.endpoint("/api/flightsheets")
	if err != nil {
		return nil, err
	}
	var sheets []Flightsheet
	if err := c.do(ctx, http.MethodGet, u, nil, &sheets); err != nil {
		return nil, fmt.Errorf("list flightsheets: %w", err)
	}
	return sheets, nil
}

// PutFlightsheet creates or replaces a flightsheet
func (c *Client) PutFlightsheet(ctx context.Context, id string, entries []FlightsheetEntry) error {
	u, err := c.endpoint("/api/flightsheets/" + url.PathEscape(id))
	if err != nil {
		return err
	}
	body := struct {
		Entries []FlightsheetEntry `json:"entries"`
	}{Entries: entries}

	if err := c.do(ctx, http.MethodPut, u, body, nil); err != nil {
		return fmt.Errorf("save flightsheet %q: %w", id, err)
	}
	return nil
}

// DeleteFlightsheet removes a flightsheet
func (c *Client) DeleteFlightsheet(ctx context.Context, id string) error {
	u, err := c.endpoint("/api/flightsheets/" + url.PathEscape(id))
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("delete flightsheet %q: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, u string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := codec.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
		c.logger.Warn("Backend request failed",
			zap.String("method", method),
			zap.String("url", u),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := codec.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts detail or message from an error body
func errorMessage(data []byte) string {
	var body struct {
		Detail  interface{} `json:"detail"`
		Message string      `json:"message"`
	}
	if err := codec.Unmarshal(data, &body); err != nil {
		return ""
	}
	switch d := body.Detail.(type) {
	case string:
		if d != "" {
			return d
		}
	case nil:
	default:
		if b, err := codec.Marshal(d); err == nil {
			return string(b)
		}
	}
	return body.Message
}
