package datasource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

// IndexFile is the resolver index name under a tiles root.
const IndexFile = "resolver.json"

// Tiles reads pre-computed ego tiles and the resolver index. A missing
// tile is reported with ErrCodeNotFound.
type Tiles interface {
	Tile(ctx context.Context, key Key, f Format) ([]byte, error)
	Index(ctx context.Context) ([]byte, error)
	Close() error
}

// TileWriter is a Tiles store that `cache build` can populate.
type TileWriter interface {
	Tiles
	PutTile(ctx context.Context, key Key, f Format, data []byte) error
	PutIndex(ctx context.Context, data []byte) error
}

// OpenTiles picks a store for source: an http(s) base URL served under
// /cache/, a mongodb:// URI, or a local directory.
func OpenTiles(ctx context.Context, source string, client *Client) (Tiles, error) {
	switch {
	case source == "":
		return nil, gerrors.New(gerrors.ErrCodeInvalidInput, "empty tile source")
	case strings.HasPrefix(source, "mongodb://"), strings.HasPrefix(source, "mongodb+srv://"):
		return OpenMongoTiles(ctx, source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		if client == nil {
			client = NewClient(source, "")
		}
		return NewHTTPTiles(source, client), nil
	default:
		return NewDirTiles(source), nil
	}
}

// HTTPTiles fetches tiles from {base}/cache/.
type HTTPTiles struct {
	base   string
	client *Client
}

// NewHTTPTiles creates an HTTPTiles that issues requests through client.
func NewHTTPTiles(base string, client *Client) *HTTPTiles {
	return &HTTPTiles{base: strings.TrimRight(base, "/"), client: client}
}

// Tile fetches {base}/cache/{kind}/{id}.{bin|json}.
func (t *HTTPTiles) Tile(ctx context.Context, key Key, f Format) ([]byte, error) {
	return t.client.GetBytes(ctx, t.base+"/cache/"+key.TilePath(f))
}

// Index fetches {base}/cache/resolver.json.
func (t *HTTPTiles) Index(ctx context.Context) ([]byte, error) {
	return t.client.GetBytes(ctx, t.base+"/cache/"+IndexFile)
}

// Close is a no-op.
func (t *HTTPTiles) Close() error { return nil }

// DirTiles reads and writes tiles under a local directory laid out as
// resolver.json, person/<id>.bin, company/<id>.json and so on.
type DirTiles struct {
	dir string
}

// NewDirTiles creates a DirTiles rooted at dir.
func NewDirTiles(dir string) *DirTiles { return &DirTiles{dir: dir} }

// Dir returns the root directory.
func (t *DirTiles) Dir() string { return t.dir }

// Path returns the file path of a tile.
func (t *DirTiles) Path(key Key, f Format) string {
	return filepath.Join(t.dir, filepath.FromSlash(key.TilePath(f)))
}

// Tile reads a tile file.
func (t *DirTiles) Tile(_ context.Context, key Key, f Format) ([]byte, error) {
	return readTile(t.Path(key, f), key.String())
}

// Index reads resolver.json.
func (t *DirTiles) Index(context.Context) ([]byte, error) {
	return readTile(filepath.Join(t.dir, IndexFile), "resolver index")
}

// PutTile writes a tile file, creating the kind directory.
func (t *DirTiles) PutTile(_ context.Context, key Key, f Format, data []byte) error {
	return writeAtomic(t.Path(key, f), data)
}

// PutIndex writes resolver.json.
func (t *DirTiles) PutIndex(_ context.Context, data []byte) error {
	return writeAtomic(filepath.Join(t.dir, IndexFile), data)
}

// Close is a no-op.
func (t *DirTiles) Close() error { return nil }

func readTile(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, gerrors.New(gerrors.ErrCodeNotFound, "no cached tile for %s", what)
	}
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInternal, err, "read %s", path)
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tile-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

var (
	_ TileWriter = (*DirTiles)(nil)
	_ Tiles      = (*HTTPTiles)(nil)
)
