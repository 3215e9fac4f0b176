package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// digestKey joins kind with a 64-bit digest of the JSON-encoded params.
// Frame keys are rebuilt on every request, so they use xxhash rather than
// a cryptographic hash.
func digestKey(kind string, params ...any) string {
	data, err := json.Marshal(params)
	if err != nil {
		// Params are plain option structs; fall back to the kind alone
		// rather than sharing a key between distinct requests.
		return kind + ":unhashable"
	}
	return kind + ":" + strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Hash returns the hex SHA-256 of an encoded graph. Frame cache entries are
// keyed by it so a changed ego network never serves a stale image.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
