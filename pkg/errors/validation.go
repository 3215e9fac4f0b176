package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

const maxQueryLength = 512

// Entity ids name cache paths ({kind}/{id}.bin), so only characters that
// cannot leave the directory are accepted.
var entityID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidateEntityID rejects ids that are empty or not a plain slug.
func ValidateEntityID(id string) error {
	switch {
	case id == "":
		return New(ErrCodeInvalidInput, "entity id cannot be empty")
	case !entityID.MatchString(id):
		return New(ErrCodeInvalidInput, "invalid entity id: %q", id)
	}
	return nil
}

// ValidateQuery rejects blank, oversized or control-character queries
// before they reach the resolver.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return New(ErrCodeInvalidInput, "query cannot be empty")
	}
	if len(q) > maxQueryLength {
		return New(ErrCodeInvalidInput, "query too long (max %d characters)", maxQueryLength)
	}
	if strings.IndexFunc(q, unicode.IsControl) >= 0 {
		return New(ErrCodeInvalidInput, "query contains control characters")
	}
	return nil
}

// ValidateBaseURL checks an API base: absolute http(s) with a host and no
// query or fragment, since request paths are appended to it.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid base URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "base URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "base URL %q has no host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return New(ErrCodeInvalidInput, "base URL %q must not carry a query or fragment", raw)
	}
	return nil
}
