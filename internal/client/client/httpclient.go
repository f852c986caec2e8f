package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

type credentials struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type exportResponse struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
	Timers    int    `json:"timers"`
	Size      int    `json:"size"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPClient talks to the server's REST API.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// BaseURL is the server URL the client was created with.
func (c *HTTPClient) BaseURL() string { return c.baseURL }

func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken installs a session token obtained earlier.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// PushURL is the websocket endpoint matching the base URL.
func (c *HTTPClient) PushURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (c *HTTPClient) Register(ctx context.Context, userName, password string) error {
	return c.do(ctx, http.MethodPost, "/api/register", false, credentials{userName, password}, nil)
}

func (c *HTTPClient) Login(ctx context.Context, userName, password string) (Session, error) {
	var lr loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", false, credentials{userName, password}, &lr); err != nil {
		return Session{}, err
	}
	c.SetToken(lr.Token)
	return Session{Token: lr.Token, ExpiresAt: time.UnixMilli(lr.ExpiresAt)}, nil
}

// Logout revokes the session on the server and forgets it locally. The
// local token is dropped even if the server cannot be reached.
func (c *HTTPClient) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/logout", true, nil, nil)
	c.SetToken("")
	return err
}

func (c *HTTPClient) StartTimer(ctx context.Context, description string) (wire.Timer, error) {
	var t wire.Timer
	err := c.do(ctx, http.MethodPost, "/api/timers", true, map[string]string{"description": description}, &t)
	return t, err
}

func (c *HTTPClient) StopTimer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, "/api/timers/"+strconv.FormatInt(id, 10)+"/stop", true, nil, nil)
}

func (c *HTTPClient) ListTimers(ctx context.Context, activeOnly bool) ([]wire.Timer, error) {
	path := "/api/timers?status=all"
	if activeOnly {
		path = "/api/timers?status=active"
	}
	var ts []wire.Timer
	if err := c.do(ctx, http.MethodGet, path, true, nil, &ts); err != nil {
		return nil, err
	}
	return ts, nil
}

func (c *HTTPClient) Export(ctx context.Context) (*Export, error) {
	var er exportResponse
	if err := c.do(ctx, http.MethodPost, "/api/timers/export", true, nil, &er); err != nil {
		return nil, err
	}
	return &Export{
		Key:       er.Key,
		URL:       er.URL,
		ExpiresAt: time.UnixMilli(er.ExpiresAt),
		Timers:    er.Timers,
		Size:      er.Size,
	}, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", false, nil, nil)
}

// do sends one request. in, when non-nil, is sent as the JSON body; out,
// when non-nil, receives the JSON response.
func (c *HTTPClient) do(ctx context.Context, method, path string, authed bool, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := c.Token()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError maps a non-2xx response to a sentinel error.
func statusError(resp *http.Response) error {
	var er errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&er); err != nil || er.Message == "" {
		er.Message = http.StatusText(resp.StatusCode)
	}

	var kind error
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = ErrUnauthorized
	case resp.StatusCode == http.StatusConflict && er.Error == "invalid_state":
		kind = common.ErrorInvalidState
	case resp.StatusCode == http.StatusConflict:
		kind = common.ErrorConflict
	case resp.StatusCode == http.StatusNotFound:
		kind = common.ErrorNotFound
	case resp.StatusCode == http.StatusBadRequest:
		kind = common.ErrorValidation
	case resp.StatusCode == http.StatusNotImplemented:
		kind = common.ErrorNotConfigured
	case resp.StatusCode == http.StatusServiceUnavailable:
		kind = ErrUnavailable
	default:
		kind = common.ErrorInternal
	}
	if errors.Is(kind, ErrUnauthorized) {
		return kind
	}
	return fmt.Errorf("%w: %s", kind, er.Message)
}
