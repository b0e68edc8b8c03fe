package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/convgraph/internal/events"
	"github.com/alfredjeanlab/convgraph/internal/model"
	"github.com/alfredjeanlab/convgraph/internal/rpc"
)

// HTTPClient implements Client using the convd HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) FindConverters(ctx context.Context, in, out string) (*rpc.FindConvertersResponse, error) {
	q := url.Values{}
	q.Set("in", in)
	q.Set("out", out)
	var resp rpc.FindConvertersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/converters?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) ListRegistrations(ctx context.Context, filter string) (*rpc.ListRegistrationsResponse, error) {
	path := "/v1/registrations"
	if filter != "" {
		path += "?" + url.Values{"filter": {filter}}.Encode()
	}
	var resp rpc.ListRegistrationsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	if err := c.doJSON(ctx, http.MethodGet, "/v1/registrations/"+url.PathEscape(id), nil, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	var out model.Registration
	if err := c.doJSON(ctx, http.MethodPost, "/v1/registrations", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Modify(ctx context.Context, reg *model.Registration) (*model.Registration, error) {
	var out model.Registration
	if err := c.doJSON(ctx, http.MethodPut, "/v1/registrations/"+url.PathEscape(reg.ID), reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Unregister(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/registrations/"+url.PathEscape(id), nil, nil)
}

func (c *HTTPClient) Graph(ctx context.Context) (*rpc.GraphResponse, error) {
	var resp rpc.GraphResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/graph", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Peers(ctx context.Context) (*rpc.PeersResponse, error) {
	var resp rpc.PeersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/v1/peers", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GraphML fetches the server-rendered GraphML document.
func (c *HTTPClient) GraphML(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/graph/graphml", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// StreamEvents follows the server's registration event stream, calling fn
// for each event until ctx is cancelled or the stream ends. topics are
// NATS-style patterns; none means all.
func (c *HTTPClient) StreamEvents(ctx context.Context, topics []string, fn func(topic string, ev events.RegistrationChanged)) error {
	path := "/v1/events/stream"
	if len(topics) > 0 {
		path += "?" + url.Values{"topics": {strings.Join(topics, ",")}}.Encode()
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return apiError(resp.StatusCode, body)
	}

	var topic string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			topic = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			ev, err := events.DecodeRegistrationChanged([]byte(strings.TrimPrefix(line, "data:")))
			if err != nil {
				return fmt.Errorf("decoding stream event: %w", err)
			}
			fn(topic, ev)
		case line == "":
			topic = ""
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func apiError(status int, body []byte) *APIError {
	var errResp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		return &APIError{StatusCode: status, Message: errResp.Error}
	}
	return &APIError{StatusCode: status, Message: string(body)}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	return resp, nil
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// BaseURL returns the server URL the client targets.
func (c *HTTPClient) BaseURL() string { return c.baseURL }
