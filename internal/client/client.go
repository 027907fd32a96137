// Package client talks to the NSoT REST API.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/martinsuchenak/nsotctl/internal/config"
	"github.com/martinsuchenak/nsotctl/internal/log"
	"github.com/martinsuchenak/nsotctl/internal/model"
)

// Client is an authenticated API client bound to one default site
type Client struct {
	baseURL    string
	cfg        *config.Config
	httpClient *http.Client
	site       int

	mu    sync.Mutex
	token string
}

// New creates a client from a validated configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		site:       cfg.Site(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Site returns the site requests are scoped to.
func (c *Client) Site() int {
	return c.site
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// path builds a collection or detail path. Site-scoped resources are
// rebased under /sites/{site}/.
func (c *Client) path(site int, rt model.ResourceType, segments ...string) (string, error) {
	var b strings.Builder
	if rt.SiteScoped() {
		if site == 0 {
			site = c.site
		}
		if site == 0 {
			return "", ErrSiteRequired
		}
		b.WriteString("/sites/" + strconv.Itoa(site))
	}
	b.WriteString("/" + rt.Path() + "/")
	for _, s := range segments {
		b.WriteString(escapeSegment(s) + "/")
	}
	return b.String(), nil
}

// escapeSegment escapes a path segment but keeps the slash of a CIDR, which
// the API routes as part of the natural key.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), "%2F", "/")
}

// do performs a request and returns the parsed body. Every failure is a
// *TransportError.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body string) (gjson.Result, error) {
	return c.send(ctx, method, path, params, body, true)
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, body string, authenticated bool) (gjson.Result, error) {
	requestID := newRequestID()
	op := method + " " + path

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return gjson.Result{}, &TransportError{Operation: op, Message: "invalid request", InternalMsg: err.Error(), RequestID: requestID, err: err}
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	accept := "application/json"
	if c.cfg.APIVersion != "" {
		accept += "; version=" + c.cfg.APIVersion
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-Request-ID", requestID)

	if authenticated {
		if err := c.authorize(ctx, req); err != nil {
			return gjson.Result{}, err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, &TransportError{Operation: op, Message: "failed to connect to server", InternalMsg: err.Error(), RequestID: requestID, err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, &TransportError{Operation: op, StatusCode: resp.StatusCode, Message: "failed to read response", InternalMsg: err.Error(), RequestID: requestID, err: err}
	}

	log.Debug("API request", "method", method, "url", u, "status", resp.StatusCode, "request_id", requestID, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return gjson.Result{}, errorFromResponse(op, resp, raw, requestID)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return gjson.Result{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &TransportError{Operation: op, StatusCode: resp.StatusCode, Message: "invalid JSON in response", InternalMsg: truncate(string(raw)), RequestID: requestID}
	}
	return gjson.ParseBytes(raw), nil
}

func errorFromResponse(op string, resp *http.Response, raw []byte, requestID string) *TransportError {
	e := &TransportError{
		Operation:   op,
		StatusCode:  resp.StatusCode,
		Message:     resp.Status,
		InternalMsg: truncate(string(raw)),
		RequestID:   requestID,
	}
	if !gjson.ValidBytes(raw) {
		return e
	}
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Get("error.message").Exists():
		e.Message = doc.Get("error.message").String()
		e.Code = int(doc.Get("error.code").Int())
	case doc.Get("detail").Exists():
		e.Message = doc.Get("detail").String()
	case doc.Get("error").Type == gjson.String:
		e.Message = doc.Get("error").String()
	}
	return e
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	switch c.cfg.AuthMethod {
	case config.AuthHeader:
		req.Header.Set(c.cfg.AuthHeader, c.cfg.HeaderEmail())
		return nil
	default:
		token, err := c.authToken(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", fmt.Sprintf("AuthToken %s:%s", c.cfg.Email, token))
		return nil
	}
}

// authToken exchanges email and secret key for a session token once per
// client.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	body, err := Body{}.Set("email", c.cfg.Email).Set("secret_key", c.cfg.SecretKey).String()
	if err != nil {
		return "", err
	}
	res, err := c.send(ctx, http.MethodPost, "/authenticate/", nil, body, false)
	if err != nil {
		return "", err
	}

	token := res.Get("auth_token")
	if !token.Exists() {
		token = res.Get("data.auth_token")
	}
	if token.String() == "" {
		return "", &TransportError{Operation: "POST /authenticate/", Message: "no auth_token in response", InternalMsg: truncate(res.Raw)}
	}

	c.token = token.String()
	log.Debug("Authenticated", "email", c.cfg.Email)
	return c.token, nil
}

// Results unwraps the "results" envelope of list responses. A bare object
// becomes a single-element list.
func Results(res gjson.Result) []gjson.Result {
	if r := res.Get("results"); r.Exists() {
		return r.Array()
	}
	if res.IsArray() {
		return res.Array()
	}
	if res.IsObject() {
		return []gjson.Result{res}
	}
	return nil
}

func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func truncate(s string) string {
	const max = 512
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
