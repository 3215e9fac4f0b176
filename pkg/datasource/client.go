package datasource

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/httputil"
	"github.com/matzehuels/grandgraph/pkg/observability"
)

// Query defaults, matching what the ego endpoint assumes when omitted.
const (
	DefaultVariant = "all"
	DefaultLimit   = 1500

	// EgoTimeout aborts a binary ego fetch so the fallback chain moves on
	// instead of hanging on a slow backend.
	EgoTimeout = 6 * time.Second
)

// Client talks to the query API: ego buffers, JSON ego documents and the
// handle resolver.
type Client struct {
	base    string
	http    *http.Client
	memo    *httputil.Memo
	variant string
	limit   int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default bearer-authenticated client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithVariant sets the result variant tag sent to the ego endpoint.
func WithVariant(v string) ClientOption {
	return func(c *Client) {
		if v != "" {
			c.variant = v
		}
	}
}

// WithLimit sets the neighbor row limit.
func WithLimit(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithMemo enables on-disk memoization for [Client.Cached].
func WithMemo(memo *httputil.Memo) ClientOption {
	return func(c *Client) { c.memo = memo }
}

// NewClient creates a Client for base. A non-empty bearer is attached to
// every request.
func NewClient(base, bearer string, opts ...ClientOption) *Client {
	c := &Client{
		base:    strings.TrimRight(base, "/"),
		http:    httputil.NewClient(bearer),
		variant: DefaultVariant,
		limit:   DefaultLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Base returns the API base URL without a trailing slash.
func (c *Client) Base() string { return c.base }

// EgoURL builds the ego endpoint URL for key.
func (c *Client) EgoURL(key Key, f Format) string {
	if f == JSON {
		return c.egoURL(key, "json")
	}
	return c.egoURL(key, "")
}

func (c *Client) egoURL(key Key, format string) string {
	q := url.Values{}
	q.Set(key.Kind.Param(), key.ID)
	q.Set("variant", c.variant)
	q.Set("limit", strconv.Itoa(c.limit))
	if format != "" {
		q.Set("format", format)
	}
	return c.base + "/graph/ego?" + q.Encode()
}

// Ego fetches the ego graph of key in format f. Binary fetches are bounded
// by EgoTimeout.
func (c *Client) Ego(ctx context.Context, key Key, f Format) ([]byte, error) {
	if f == Binary {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, EgoTimeout)
		defer cancel()
	}
	return c.GetBytes(ctx, c.EgoURL(key, f))
}

// EgoMeta fetches the node ids, names and titles that accompany the binary
// ego buffer of key, in buffer order. It is bounded by EgoTimeout.
func (c *Client) EgoMeta(ctx context.Context, key Key) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, EgoTimeout)
	defer cancel()
	return c.GetBytes(ctx, c.egoURL(key, "meta"))
}

// ResolveHandle asks the API for the person behind a profile URL or vanity
// handle.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (Key, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return Key{}, gerrors.New(gerrors.ErrCodeInvalidInput, "empty handle")
	}
	var out struct {
		PersonID flexID `json:"person_id"`
	}
	if err := c.GetJSON(ctx, c.base+"/resolve?linkedin_url="+url.QueryEscape(handle), &out); err != nil {
		return Key{}, err
	}
	if out.PersonID == "" {
		return Key{}, gerrors.New(gerrors.ErrCodeNotFound, "no person for handle %q", handle)
	}
	return NewKey(Person, string(out.PersonID))
}

// Cached retrieves a value from the memo or executes fetch and memoizes
// the result. If refresh is true the memo is bypassed.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	if !refresh && c.memo != nil {
		if ok, _ := c.memo.Get(key, v); ok {
			return nil
		}
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if c.memo != nil {
		_ = c.memo.Set(key, v)
	}
	return nil
}

// GetBytes performs a GET and returns the whole body.
func (c *Client) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	return data, nil
}

// GetJSON performs a GET and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "decode response")
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidInput, err, "build request")
	}

	hooks := observability.HTTP()
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, transportError(ctx, err)
	}
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, req.URL.Path); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gerrors.Wrap(gerrors.ErrCodeTimeout, err, "request timed out")
	}
	return httputil.Retryable(gerrors.Wrap(gerrors.ErrCodeNetwork, err, "request failed"))
}

func checkStatus(code int, path string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return gerrors.New(gerrors.ErrCodeNotFound, "%s: status %d", path, code)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return gerrors.New(gerrors.ErrCodeUnauthorized, "%s: status %d", path, code)
	case code >= 500:
		return httputil.Retryable(gerrors.New(gerrors.ErrCodeNetwork, "%s: status %d", path, code))
	default:
		return gerrors.New(gerrors.ErrCodeNetwork, "%s: status %d", path, code)
	}
}

// flexID accepts an id encoded as either a JSON string or a number.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}
