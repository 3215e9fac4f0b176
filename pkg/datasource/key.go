package datasource

import (
	"path"
	"strings"

	gerrors "github.com/matzehuels/grandgraph/pkg/errors"
)

// Kind is the entity type an ego graph is centered on.
type Kind string

const (
	Person  Kind = "person"
	Company Kind = "company"
)

// ParseKind accepts "person" or "company".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Person, Company:
		return k, nil
	default:
		return "", gerrors.New(gerrors.ErrCodeInvalidInput, "unknown entity kind %q", s)
	}
}

// Param is the query parameter the ego endpoint takes for this kind.
func (k Kind) Param() string { return string(k) + "_id" }

// Key addresses one entity, written "person:<id>" or "company:<id>".
type Key struct {
	Kind Kind
	ID   string
}

// NewKey validates id and builds a Key.
func NewKey(kind Kind, id string) (Key, error) {
	if err := gerrors.ValidateEntityID(id); err != nil {
		return Key{}, err
	}
	return Key{Kind: kind, ID: id}, nil
}

// ParseKey parses the canonical "kind:id" form. ok is false for anything
// else, including keys with an invalid id.
func ParseKey(s string) (k Key, ok bool) {
	kind, id, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return Key{}, false
	}
	switch Kind(kind) {
	case Person, Company:
	default:
		return Key{}, false
	}
	if gerrors.ValidateEntityID(id) != nil {
		return Key{}, false
	}
	return Key{Kind: Kind(kind), ID: id}, true
}

// String returns the canonical "kind:id" form.
func (k Key) String() string { return string(k.Kind) + ":" + k.ID }

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k.Kind == "" && k.ID == "" }

// TilePath returns the tile location relative to a tiles root, for
// example "person/42.bin".
func (k Key) TilePath(f Format) string {
	return path.Join(string(k.Kind), k.ID+"."+f.Ext())
}

// Format selects a tile encoding.
type Format int

const (
	Binary Format = iota
	JSON
)

// Ext returns the file extension used by tile paths.
func (f Format) Ext() string {
	if f == JSON {
		return "json"
	}
	return "bin"
}

func (f Format) String() string {
	if f == JSON {
		return "json"
	}
	return "binary"
}

// ParseFormat accepts "bin", "binary" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "bin", "binary":
		return Binary, nil
	case "json":
		return JSON, nil
	default:
		return 0, gerrors.New(gerrors.ErrCodeInvalidInput, "unknown tile format %q", s)
	}
}
