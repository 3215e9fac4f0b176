package datasource

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
	"github.com/matzehuels/grandgraph/pkg/observability"
)

// Index maps lower-cased handles and display names to entity keys. Values
// are canonical keys ("person:42"); bare ids are accepted and take the
// kind implied by the map.
type Index struct {
	PeopleByHandle  map[string]string `json:"peopleByHandle"`
	PeopleByName    map[string]string `json:"peopleByName"`
	CompaniesByName map[string]string `json:"companiesByName"`
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{
		PeopleByHandle:  map[string]string{},
		PeopleByName:    map[string]string{},
		CompaniesByName: map[string]string{},
	}
}

// ParseIndex decodes resolver.json. The legacy peopleByLinkedIn map is
// merged into PeopleByHandle and every key is lower-cased.
func ParseIndex(data []byte) (*Index, error) {
	var raw struct {
		Index
		PeopleByLinkedIn map[string]string `json:"peopleByLinkedIn"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "decode resolver index")
	}
	ix := NewIndex()
	for k, v := range raw.PeopleByLinkedIn {
		ix.PeopleByHandle[lower(k)] = v
	}
	for k, v := range raw.PeopleByHandle {
		ix.PeopleByHandle[lower(k)] = v
	}
	for k, v := range raw.PeopleByName {
		ix.PeopleByName[lower(k)] = v
	}
	for k, v := range raw.CompaniesByName {
		ix.CompaniesByName[lower(k)] = v
	}
	return ix, nil
}

// Marshal encodes the index as resolver.json.
func (ix *Index) Marshal() ([]byte, error) {
	return json.Marshal(ix)
}

// AddPerson registers a person under an optional handle and display name.
func (ix *Index) AddPerson(id, handle, name string) {
	key := Key{Kind: Person, ID: id}.String()
	if h := Handle(handle); h != "" {
		ix.PeopleByHandle[h] = key
	} else if handle != "" {
		ix.PeopleByHandle[lower(handle)] = key
	}
	if name != "" {
		ix.PeopleByName[lower(name)] = key
	}
}

// AddCompany registers a company under its display name.
func (ix *Index) AddCompany(id, name string) {
	if name != "" {
		ix.CompaniesByName[lower(name)] = Key{Kind: Company, ID: id}.String()
	}
}

// Len returns the total number of entries.
func (ix *Index) Len() int {
	return len(ix.PeopleByHandle) + len(ix.PeopleByName) + len(ix.CompaniesByName)
}

// Lookup resolves a query by handle, then person name, then company name.
func (ix *Index) Lookup(query string) (Key, bool) {
	q := lower(query)
	if h := Handle(query); h != "" {
		if k, ok := indexValue(ix.PeopleByHandle[h], Person); ok {
			return k, true
		}
	}
	if k, ok := indexValue(ix.PeopleByHandle[q], Person); ok {
		return k, true
	}
	if k, ok := indexValue(ix.PeopleByName[q], Person); ok {
		return k, true
	}
	return indexValue(ix.CompaniesByName[q], Company)
}

func indexValue(v string, kind Kind) (Key, bool) {
	if v == "" {
		return Key{}, false
	}
	if k, ok := ParseKey(v); ok {
		return k, true
	}
	k, err := NewKey(kind, v)
	return k, err == nil
}

// Handle extracts the lower-cased vanity handle from a profile URL such as
// "https://www.linkedin.com/in/Jane-Doe/". It returns "" for anything that
// is not a profile URL.
func Handle(s string) string {
	s = strings.TrimSpace(s)
	i := strings.Index(strings.ToLower(s), "linkedin.com/in/")
	if i < 0 {
		return ""
	}
	slug := s[i+len("linkedin.com/in/"):]
	if j := strings.IndexAny(slug, "/?#"); j >= 0 {
		slug = slug[:j]
	}
	if dec, err := url.PathUnescape(slug); err == nil {
		slug = dec
	}
	return lower(slug)
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Resolver maps free-text queries to entity keys using the tiles index,
// falling back to the API's handle resolver for profile URLs.
type Resolver struct {
	tiles  Tiles
	client *Client
	logger *log.Logger

	// refresh bypasses the index memo on the first load.
	refresh bool

	mu    sync.Mutex
	index *Index
}

// NewResolver creates a Resolver. client may be nil to disable remote
// resolution and index memoization.
func NewResolver(tiles Tiles, client *Client, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{tiles: tiles, client: client, logger: logger}
}

// LoadIndex returns the resolver index, fetching it at most once per
// Resolver unless refresh is set.
func (r *Resolver) LoadIndex(ctx context.Context, refresh bool) (*Index, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index != nil && !refresh {
		return r.index, nil
	}

	fetch := func(v *Index) func() error {
		return func() error {
			data, err := r.tiles.Index(ctx)
			if err != nil {
				return err
			}
			ix, err := ParseIndex(data)
			if err != nil {
				return err
			}
			*v = *ix
			return nil
		}
	}

	ix := NewIndex()
	var err error
	if r.client != nil {
		err = r.client.Cached(ctx, "resolver-index", refresh || r.refresh, ix, fetch(ix))
	} else {
		err = fetch(ix)()
	}
	if err != nil {
		return nil, err
	}
	r.index = ix
	return ix, nil
}

// Resolve maps query to a key. Canonical keys pass through unchanged. When
// nothing matches the error carries ErrCodeNotFound with every reason
// joined as its cause.
func (r *Resolver) Resolve(ctx context.Context, query string) (key Key, err error) {
	start := time.Now()
	defer func() {
		observability.Pipeline().OnResolveComplete(ctx, query, key.String(), time.Since(start), err)
	}()

	if err := gerrors.ValidateQuery(query); err != nil {
		return Key{}, err
	}
	if k, ok := ParseKey(query); ok {
		return k, nil
	}

	var errs []error
	ix, ierr := r.LoadIndex(ctx, false)
	if ierr == nil {
		if k, ok := ix.Lookup(query); ok {
			return k, nil
		}
		errs = append(errs, gerrors.New(gerrors.ErrCodeNotFound, "not in resolver index"))
	} else {
		r.logger.Debug("resolver index unavailable", "err", ierr)
		errs = append(errs, ierr)
	}

	if Handle(query) != "" && r.client != nil {
		k, rerr := r.client.ResolveHandle(ctx, query)
		if rerr == nil {
			return k, nil
		}
		r.logger.Debug("remote handle resolve failed", "err", rerr)
		errs = append(errs, rerr)
	}
	return Key{}, gerrors.Wrap(gerrors.ErrCodeNotFound, errors.Join(errs...), "no entity matches %q", query)
}
