package cache

import "fmt"

// Keyer derives cache keys from request parameters.
type Keyer interface {
	HTTPKey(namespace, key string) string
	EgoKey(kind, id string, opts EgoKeyOpts) string
	FrameKey(query string, opts FrameKeyOpts) string
}

// EgoKeyOpts are the parameters that change an ego response.
type EgoKeyOpts struct {
	Variant string `json:"variant"`
	Limit   int    `json:"limit"`
	Format  string `json:"format"`
}

// FrameKeyOpts are the parameters that change a rendered frame.
type FrameKeyOpts struct {
	Format    string  `json:"format"`
	Width     int     `json:"w"`
	Height    int     `json:"h"`
	DPR       float64 `json:"dpr"`
	Time      float64 `json:"t"`
	Particles int     `json:"particles"`
	Seed      uint64  `json:"seed"`
	Demo      bool    `json:"demo"`
	Detailed  bool    `json:"detailed"`
}

// DefaultKeyer produces readable ego keys and hashed frame keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default Keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// HTTPKey generates a key for raw HTTP response caching.
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return fmt.Sprintf("http:%s:%s", namespace, key)
}

// EgoKey generates a key for an encoded ego response.
func (DefaultKeyer) EgoKey(kind, id string, opts EgoKeyOpts) string {
	return fmt.Sprintf("ego:%s:%s:%s:%d:%s", kind, id, opts.Variant, opts.Limit, opts.Format)
}

// FrameKey generates a key for a rendered frame.
func (DefaultKeyer) FrameKey(query string, opts FrameKeyOpts) string {
	return digestKey("frame", query, opts)
}

var _ Keyer = DefaultKeyer{}
