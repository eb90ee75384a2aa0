package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kutbudev/agenda-cli/internal/clock"
	apierrors "github.com/kutbudev/agenda-cli/internal/errors"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
)

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token() (string, error)
}

// CredentialRefresher renews credentials after a 401.
type CredentialRefresher interface {
	Refresh(ctx context.Context) error
}

// Client is the authenticated REST gateway for tags, activities and
// calendar events. It never caches results.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Refresher  CredentialRefresher
	Zone       *clock.Zone

	// OnUnauthorized runs when a request is still rejected after the single
	// refresh-and-retry. The CLI wires it to the router's /login route.
	OnUnauthorized func()
}

// NewClient creates a new API client
func NewClient(baseURL string, timeout time.Duration, zone *clock.Zone) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if zone == nil {
		zone = clock.NewZone("")
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		Zone: zone,
	}
}

type call struct {
	method   string
	endpoint string
	body     interface{}
	// bearer overrides Tokens when set.
	bearer string
	// noRetry disables the refresh-and-retry, used by the auth endpoints.
	noRetry bool
}

// Request sends an authenticated request and returns the raw body. It is
// exported for ad-hoc endpoints; resource methods should be preferred.
func (c *Client) Request(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	return c.send(ctx, call{method: method, endpoint: endpoint, body: body})
}

// send performs the request, retrying exactly once after a credential
// refresh when the first attempt fails with an AuthError.
func (c *Client) send(ctx context.Context, cl call) ([]byte, error) {
	data, err := c.makeRequest(ctx, cl)
	if err == nil || !apierrors.IsAuth(err) || cl.noRetry {
		return data, err
	}
	if c.Refresher == nil {
		c.unauthorized()
		return nil, err
	}

	appLog.Debug("auth rejected; refreshing credentials", "method", cl.method, "endpoint", cl.endpoint)
	if rerr := c.Refresher.Refresh(ctx); rerr != nil {
		appLog.Error("credential refresh failed", rerr)
		c.unauthorized()
		return nil, err
	}

	data, err = c.makeRequest(ctx, cl)
	if apierrors.IsAuth(err) {
		c.unauthorized()
	}
	return data, err
}

func (c *Client) unauthorized() {
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

// makeRequest makes a single HTTP request and returns the response body
func (c *Client) makeRequest(ctx context.Context, cl call) ([]byte, error) {
	url := c.BaseURL + cl.endpoint
	op := cl.method + " " + cl.endpoint

	var reqBody io.Reader
	if cl.body != nil {
		jsonBody, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token := cl.bearer
	if token == "" && c.Tokens != nil {
		token, err = c.Tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to load credentials: %w", err)
		}
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &apierrors.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apierrors.NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		appLog.Debug("api error", "op", op, "status", resp.StatusCode)
		return nil, decodeError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// errorBody is the backend's error shape:
// {"message": "...", "errors": {"title": ["The title field is required."]}}.
type errorBody struct {
	Message string                     `json:"message"`
	Error   string                     `json:"error"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func decodeError(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return apierrors.FromStatus(status, msg, nil)
	}

	fields := make(map[string][]string, len(eb.Errors))
	for field, raw := range eb.Errors {
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			fields[field] = many
			continue
		}
		var one string
		if err := json.Unmarshal(raw, &one); err == nil {
			fields[field] = []string{one}
		}
	}

	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	return apierrors.FromStatus(status, msg, fields)
}

// unwrapData strips a {"data": ...} envelope. Objects that carry their own
// "id" are records, not envelopes.
func unwrapData(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return trimmed
	}
	if _, hasID := envelope["id"]; hasID {
		return trimmed
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return trimmed
}

// decode unmarshals a (possibly enveloped) body into v, reporting failures
// as malformed responses.
func decode(resource string, body []byte, v interface{}) error {
	payload := unwrapData(body)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return &apierrors.MalformedResponseError{Resource: resource, Reason: "empty body"}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &apierrors.MalformedResponseError{Resource: resource, Reason: err.Error()}
	}
	return nil
}

// decodeList is decode for collection endpoints; null decodes to empty.
func decodeList(resource string, body []byte, v interface{}) error {
	payload := unwrapData(body)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return &apierrors.MalformedResponseError{Resource: resource, Reason: err.Error()}
	}
	return nil
}

func malformed(resource string, err error) error {
	return &apierrors.MalformedResponseError{Resource: resource, Reason: err.Error()}
}
