package tile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	// HeaderSize is the fixed size of the buffer header in bytes.
	HeaderSize = 16

	// Dims is the number of coordinates stored per node.
	Dims = 2

	// MaxCount caps the number of nodes an encoded buffer may carry,
	// focal node included.
	MaxCount = 1500

	// maxDecodeCount guards against runaway allocations on hostile input.
	maxDecodeCount = 20000

	bytesPerNode = Dims*4 + 2 + 1
)

var (
	// ErrFormat matches every *FormatError via errors.Is.
	ErrFormat = errors.New("malformed node buffer")

	// ErrInvalid is returned by the encoders for inconsistent inputs.
	ErrInvalid = errors.New("invalid tile input")
)

// FormatError reports a buffer that is undersized or whose header disagrees
// with its payload.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "tile: " + e.Reason }

// Is makes errors.Is(err, ErrFormat) succeed for any FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErr(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Point is a node position in layout units.
type Point struct {
	X, Y float32
}

// Edge is an ordered pair of node indices from the optional edge section.
type Edge struct {
	A, B uint32
}

// Tile is the decoded form of a NodeBuffer.
type Tile struct {
	Positions []Point
	Groups    []uint16
	Flags     []uint8
	Edges     []Edge
}

// Count returns the number of nodes in the tile.
func (t *Tile) Count() int { return len(t.Positions) }

// Size returns the exact byte length of an edge-less buffer with count nodes.
func Size(count int) int { return HeaderSize + count*bytesPerNode }

// ClampCount returns the node count for a focal node plus neighbors,
// capped at MaxCount.
func ClampCount(neighbors int) int {
	return min(1+max(neighbors, 0), MaxCount)
}

// Encode packs count nodes into a buffer. The slices must each hold exactly
// count entries and count must not exceed MaxCount.
func Encode(count int, positions []Point, groups []uint16, flags []uint8) ([]byte, error) {
	if err := validate(count, positions, groups, flags); err != nil {
		return nil, err
	}
	buf := make([]byte, Size(count))
	putNodes(buf, positions, groups, flags)
	return buf, nil
}

// EncodeTile packs t, appending the edge section when t carries edges.
func EncodeTile(t *Tile) ([]byte, error) {
	count := t.Count()
	if err := validate(count, t.Positions, t.Groups, t.Flags); err != nil {
		return nil, err
	}
	for i, e := range t.Edges {
		if int(e.A) >= count || int(e.B) >= count {
			return nil, fmt.Errorf("%w: edge %d (%d,%d) out of range for %d nodes", ErrInvalid, i, e.A, e.B, count)
		}
	}

	size := Size(count)
	if len(t.Edges) == 0 {
		buf := make([]byte, size)
		putNodes(buf, t.Positions, t.Groups, t.Flags)
		return buf, nil
	}

	start := align4(size)
	buf := make([]byte, start+len(t.Edges)*8)
	putNodes(buf, t.Positions, t.Groups, t.Flags)
	for i, e := range t.Edges {
		off := start + i*8
		binary.LittleEndian.PutUint32(buf[off:], e.A)
		binary.LittleEndian.PutUint32(buf[off+4:], e.B)
	}
	return buf, nil
}

// Decode parses a complete buffer. It fails with a *FormatError when the
// buffer is shorter than its header declares, when count is zero but a
// payload follows, or when the header offsets disagree with count.
func Decode(buf []byte) (*Tile, error) {
	if len(buf) < HeaderSize {
		return nil, formatErr("buffer is %d bytes, header needs %d", len(buf), HeaderSize)
	}

	count := binary.LittleEndian.Uint32(buf[0:])
	dims := binary.LittleEndian.Uint32(buf[4:])
	groupOff := binary.LittleEndian.Uint32(buf[8:])
	flagsOff := binary.LittleEndian.Uint32(buf[12:])

	if dims != Dims {
		return nil, formatErr("dims is %d, want %d", dims, Dims)
	}
	if count > maxDecodeCount {
		return nil, formatErr("count %d exceeds %d", count, maxDecodeCount)
	}
	n := int(count)
	if n == 0 && len(buf) > HeaderSize {
		return nil, formatErr("count is zero but %d payload bytes follow", len(buf)-HeaderSize)
	}

	posBytes := n * Dims * 4
	if int(groupOff) != posBytes {
		return nil, formatErr("group offset %d, want %d", groupOff, posBytes)
	}
	if int(flagsOff) != posBytes+2*n {
		return nil, formatErr("flags offset %d, want %d", flagsOff, posBytes+2*n)
	}

	need := Size(n)
	if len(buf) < need {
		return nil, formatErr("buffer is %d bytes, %d nodes need %d", len(buf), n, need)
	}

	t := &Tile{
		Positions: make([]Point, n),
		Groups:    make([]uint16, n),
		Flags:     make([]uint8, n),
	}
	payload := buf[HeaderSize:]
	for i := range n {
		off := i * Dims * 4
		t.Positions[i] = Point{
			X: math.Float32frombits(binary.LittleEndian.Uint32(payload[off:])),
			Y: math.Float32frombits(binary.LittleEndian.Uint32(payload[off+4:])),
		}
		t.Groups[i] = binary.LittleEndian.Uint16(payload[int(groupOff)+i*2:])
	}
	copy(t.Flags, payload[flagsOff:int(flagsOff)+n])

	edges, err := decodeEdges(buf, need, n)
	if err != nil {
		return nil, err
	}
	t.Edges = edges
	return t, nil
}

func decodeEdges(buf []byte, end, count int) ([]Edge, error) {
	start := align4(end)
	if len(buf) <= start {
		return nil, nil
	}
	rem := len(buf) - start
	if rem%8 != 0 {
		return nil, formatErr("edge section is %d bytes, not a whole number of pairs", rem)
	}
	edges := make([]Edge, rem/8)
	for i := range edges {
		off := start + i*8
		e := Edge{
			A: binary.LittleEndian.Uint32(buf[off:]),
			B: binary.LittleEndian.Uint32(buf[off+4:]),
		}
		if int(e.A) >= count || int(e.B) >= count {
			return nil, formatErr("edge %d (%d,%d) out of range for %d nodes", i, e.A, e.B, count)
		}
		edges[i] = e
	}
	return edges, nil
}

func validate(count int, positions []Point, groups []uint16, flags []uint8) error {
	switch {
	case count < 0:
		return fmt.Errorf("%w: negative count %d", ErrInvalid, count)
	case count > MaxCount:
		return fmt.Errorf("%w: count %d exceeds %d", ErrInvalid, count, MaxCount)
	case len(positions) != count:
		return fmt.Errorf("%w: %d positions for count %d", ErrInvalid, len(positions), count)
	case len(groups) != count:
		return fmt.Errorf("%w: %d groups for count %d", ErrInvalid, len(groups), count)
	case len(flags) != count:
		return fmt.Errorf("%w: %d flags for count %d", ErrInvalid, len(flags), count)
	}
	return nil
}

// putNodes writes header and node arrays; buf must hold at least Size(len(positions)) bytes.
func putNodes(buf []byte, positions []Point, groups []uint16, flags []uint8) {
	n := len(positions)
	posBytes := n * Dims * 4
	binary.LittleEndian.PutUint32(buf[0:], uint32(n))
	binary.LittleEndian.PutUint32(buf[4:], Dims)
	binary.LittleEndian.PutUint32(buf[8:], uint32(posBytes))
	binary.LittleEndian.PutUint32(buf[12:], uint32(posBytes+2*n))

	payload := buf[HeaderSize:]
	for i, p := range positions {
		binary.LittleEndian.PutUint32(payload[i*8:], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(payload[i*8+4:], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint16(payload[posBytes+i*2:], groups[i])
	}
	copy(payload[posBytes+2*n:], flags)
}

func align4(n int) int { return (n + 3) &^ 3 }
