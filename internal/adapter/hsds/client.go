// Package hsds reads hyperslabs from an HDF5 REST service (HSDS) and exposes
// the WIND Toolkit irradiance archive on top of it.
package hsds

import (
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
)

const (
	// DefaultEndpoint is NREL's public HSDS gateway.
	DefaultEndpoint = "https://developer.nrel.gov/api/hsds"
	// DefaultDomain is the WIND Toolkit file on that gateway.
	DefaultDomain = "/nrel/wtk-us.h5"
)

// ErrNoAPIKey is returned when the client is created without credentials.
var ErrNoAPIKey = errors.New("HSDS api key is required")

// StatusError reports a non-200 response from the service.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hsds request %s failed with status %d: %s", e.URL, e.Status, e.Body)
}

// Range is a half-open index range [Start, Stop) along one dimension.
type Range struct {
	Start int
	Stop  int
}

// Len returns the number of indices in the range.
func (r Range) Len() int {
	return r.Stop - r.Start
}

// Select renders a hyperslab selection, e.g. [0:24,10:11,20:21].
func Select(ranges ...Range) string {
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = fmt.Sprintf("%d:%d", r.Start, r.Stop)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Client talks to one HSDS domain.
type Client struct {
	endpoint   string
	domain     string
	apiKey     string
	httpClient *http.Client

	mu       sync.RWMutex
	root     string
	datasets map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for a domain. Empty endpoint and domain fall
// back to the NREL defaults.
func NewClient(endpoint, domainPath, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if domainPath == "" {
		domainPath = DefaultDomain
	}

	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		domain:   domainPath,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		datasets: make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type domainResponse struct {
	Root string `json:"root"`
}

type linkResponse struct {
	Link struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"link"`
}

type valueResponse struct {
	Value json.RawMessage `json:"value"`
}

// Root returns the ID of the domain's root group.
func (c *Client) Root(ctx context.Context) (string, error) {
	c.mu.RLock()
	root := c.root
	c.mu.RUnlock()
	if root != "" {
		return root, nil
	}
	var resp domainResponse
	if err := c.getJSON(ctx, "/", nil, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve domain %s: %w", c.domain, err)
	}
	if resp.Root == "" {
		return "", fmt.Errorf("domain %s has no root group", c.domain)
	}
	c.mu.Lock()
	c.root = resp.Root
	c.mu.Unlock()
	return resp.Root, nil
}

// DatasetID resolves a dataset linked from the root group.
func (c *Client) DatasetID(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	id, ok := c.datasets[name]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}
	root, err := c.Root(ctx)
	if err != nil {
		return "", err
	}

	var resp linkResponse
	path := "/groups/" + url.PathEscape(root) + "/links/" + url.PathEscape(name)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve dataset %s: %w", name, err)
	}
	if resp.Link.ID == "" {
		return "", fmt.Errorf("dataset %s: link has no id", name)
	}
	c.mu.Lock()
	c.datasets[name] = resp.Link.ID
	c.mu.Unlock()
	return resp.Link.ID, nil
}

// Values reads a hyperslab of a dataset and returns its numbers flattened in
// row-major order. Compound elements are flattened field by field.
func (c *Client) Values(ctx context.Context, dataset string, sel ...Range) ([]float64, error) {
	id, err := c.DatasetID(ctx, dataset)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("select", Select(sel...))

	var resp valueResponse
	if err := c.getJSON(ctx, "/datasets/"+url.PathEscape(id)+"/value", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to read %s%s: %w", dataset, Select(sel...), err)
	}

	var raw any
	if err := json.Unmarshal(resp.Value, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s values: %w", dataset, err)
	}
	out, err := flatten(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dataset, err)
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("domain", c.domain)
	query.Set("api_key", c.apiKey)
	target := c.endpoint + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s%s: %w", c.endpoint, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		// Never echo the api key back into logs.
		return &StatusError{URL: c.endpoint + path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// flatten appends every number in a nested JSON array to out.
// null elements become NaN.
func flatten(v any, out []float64) ([]float64, error) {
	switch t := v.(type) {
	case float64:
		return append(out, t), nil
	case nil:
		return append(out, nan), nil
	case []any:
		var err error
		for _, e := range t {
			if out, err = flatten(e, out); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected value of type %T", v)
	}
}
