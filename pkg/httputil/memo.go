package httputil

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/matzehuels/grandgraph/pkg/cache"
)

// ErrExpired is returned by [Memo.Get] for an entry older than the TTL.
// The caller refetches and calls [Memo.Set].
var ErrExpired = errors.New("memo entry expired")

// memoEntry is the on-disk envelope. The write time travels with the
// value so copying a memo directory does not reset freshness.
type memoEntry struct {
	Stored int64           `json:"stored"`
	Value  json.RawMessage `json:"value"`
}

// Memo remembers JSON values across runs, one file per key. It backs the
// resolver index download and resolved free-text queries. Separate
// processes may share a directory; a single Memo is not goroutine-safe.
type Memo struct {
	dir   string
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// NewMemo opens a memo in dir, or in $XDG_CACHE_HOME/grandgraph/memo when
// dir is empty. A zero ttl never expires.
func NewMemo(dir string, ttl time.Duration) (*Memo, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(base, "grandgraph", "memo")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Memo{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (m *Memo) Dir() string        { return m.dir }
func (m *Memo) TTL() time.Duration { return m.ttl }

// Scope returns a view whose keys are prefixed by scope. Scopes nest.
func (m *Memo) Scope(scope string) *Memo {
	cp := *m
	cp.scope += scope
	return &cp
}

// Get decodes the entry for key into v and reports whether it was found.
// A stale entry returns ErrExpired and leaves v untouched, as does a
// decode failure.
func (m *Memo) Get(key string, v any) (bool, error) {
	raw, err := os.ReadFile(m.file(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var e memoEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false, err
	}
	if m.ttl > 0 && m.now().Sub(time.Unix(0, e.Stored)) > m.ttl {
		return false, ErrExpired
	}
	if err := json.Unmarshal(e.Value, v); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key and restarts its TTL.
func (m *Memo) Set(key string, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(memoEntry{Stored: m.now().UnixNano(), Value: value})
	if err != nil {
		return err
	}
	return os.WriteFile(m.file(key), raw, 0o644)
}

// Delete forgets key. Unknown keys are ignored.
func (m *Memo) Delete(key string) error {
	if err := os.Remove(m.file(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (m *Memo) file(key string) string {
	return filepath.Join(m.dir, cache.Hash([]byte(m.scope+key))+".json")
}
