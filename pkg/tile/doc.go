// Package tile implements the NodeBuffer wire format used to ship ego-graph
// layouts between the query endpoint, the cache endpoints and the renderer.
//
// # Layout
//
// A buffer is a packed little-endian record:
//
//	offset  size           field
//	0       4              count        uint32, number of nodes (≤ MaxCount when encoded)
//	4       4              dims         uint32, always 2
//	8       4              groupOffset  uint32, byte offset of groups, relative to the payload
//	12      4              flagsOffset  uint32, byte offset of flags, relative to the payload
//	16      8·count        positions    float32 pairs x0,y0,x1,y1,…
//	…       2·count        groups       uint16 per node
//	…       1·count        flags        uint8 per node
//
// An optional edge section may follow the flags array: zero padding up to the
// next 4-byte boundary, then (a,b) pairs of uint32 node indices. Buffers
// without edges are exactly [Size](count) bytes long.
//
// The group and flags arrays are carried for wire compatibility only; this
// package assigns them no meaning.
//
// # Usage
//
//	buf, err := tile.Encode(len(pts), pts, groups, flags)
//	t, err := tile.Decode(buf)
//	if errors.Is(err, tile.ErrFormat) {
//	    // undersized or inconsistent buffer
//	}
package tile
