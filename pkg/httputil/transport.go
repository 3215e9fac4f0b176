package httputil

import (
	"net/http"
	"time"

	"github.com/matzehuels/grandgraph/pkg/buildinfo"
)

// DefaultTimeout bounds a single request made by [NewClient].
const DefaultTimeout = 30 * time.Second

// BearerTransport sets "Authorization: Bearer <Token>" on every request
// when Token is non-empty, and a User-Agent when the request has none.
type BearerTransport struct {
	Token string
	Base  http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", buildinfo.UserAgent())
	}
	if t.Token != "" {
		r.Header.Set("Authorization", "Bearer "+t.Token)
	}
	return base.RoundTrip(r)
}

// NewClient returns an http.Client with DefaultTimeout that attaches token
// as a bearer credential.
func NewClient(token string) *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &BearerTransport{Token: token},
	}
}
