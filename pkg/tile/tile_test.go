package tile

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, MaxCount).Draw(t, "count")
		positions := make([]Point, count)
		groups := make([]uint16, count)
		flags := make([]uint8, count)
		for i := range count {
			positions[i] = Point{X: rapid.Float32().Draw(t, "x"), Y: rapid.Float32().Draw(t, "y")}
			groups[i] = rapid.Uint16().Draw(t, "group")
			flags[i] = rapid.Uint8().Draw(t, "flag")
		}

		buf, err := Encode(count, positions, groups, flags)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if want := 16 + 8*count + 2*count + count; len(buf) != want {
			t.Fatalf("len = %d, want %d", len(buf), want)
		}

		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Count() != count {
			t.Fatalf("count = %d, want %d", got.Count(), count)
		}
		for i := range count {
			// compare bit patterns so NaN payloads count as equal
			if math.Float32bits(got.Positions[i].X) != math.Float32bits(positions[i].X) ||
				math.Float32bits(got.Positions[i].Y) != math.Float32bits(positions[i].Y) {
				t.Fatalf("position %d = %v, want %v", i, got.Positions[i], positions[i])
			}
			if got.Groups[i] != groups[i] {
				t.Fatalf("group %d = %d, want %d", i, got.Groups[i], groups[i])
			}
			if got.Flags[i] != flags[i] {
				t.Fatalf("flag %d = %d, want %d", i, got.Flags[i], flags[i])
			}
		}
		if len(got.Edges) != 0 {
			t.Fatalf("unexpected edges: %v", got.Edges)
		}
	})
}

func TestEncodeHeader(t *testing.T) {
	buf, err := Encode(3, make([]Point, 3), make([]uint16, 3), make([]uint8, 3))
	if err != nil {
		t.Fatal(err)
	}
	le := binary.LittleEndian
	if got := le.Uint32(buf[0:]); got != 3 {
		t.Errorf("count = %d", got)
	}
	if got := le.Uint32(buf[4:]); got != 2 {
		t.Errorf("dims = %d", got)
	}
	if got := le.Uint32(buf[8:]); got != 24 {
		t.Errorf("groupOffset = %d, want 24", got)
	}
	if got := le.Uint32(buf[12:]); got != 30 {
		t.Errorf("flagsOffset = %d, want 30", got)
	}
	if len(buf) != Size(3) {
		t.Errorf("len = %d, want %d", len(buf), Size(3))
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		count int
		pos   int
		grp   int
		flg   int
	}{
		{"negative", -1, 0, 0, 0},
		{"over cap", MaxCount + 1, MaxCount + 1, MaxCount + 1, MaxCount + 1},
		{"short positions", 2, 1, 2, 2},
		{"short groups", 2, 2, 1, 2},
		{"short flags", 2, 2, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.count, make([]Point, tt.pos), make([]uint16, tt.grp), make([]uint8, tt.flg))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDecodeFormatErrors(t *testing.T) {
	valid, _ := Encode(2, []Point{{1, 2}, {3, 4}}, []uint16{0, 1}, []uint8{0, 0})

	zeroWithPayload := make([]byte, HeaderSize+4)
	binary.LittleEndian.PutUint32(zeroWithPayload[4:], Dims)

	badDims := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badDims[4:], 3)

	badGroupOff := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badGroupOff[8:], 4)

	badFlagsOff := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badFlagsOff[12:], 0)

	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"short header", make([]byte, 10)},
		{"truncated payload", valid[:len(valid)-1]},
		{"zero count with payload", zeroWithPayload},
		{"bad dims", badDims},
		{"bad group offset", badGroupOff},
		{"bad flags offset", badFlagsOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.buf)
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("err = %v, want ErrFormat", err)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("err %T is not *FormatError", err)
			}
		})
	}
}

func TestDecodeEmptyTile(t *testing.T) {
	buf, err := Encode(0, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != HeaderSize {
		t.Fatalf("len = %d, want %d", len(buf), HeaderSize)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Count() != 0 {
		t.Errorf("count = %d", got.Count())
	}
}

func TestEdgeSectionRoundTrip(t *testing.T) {
	in := &Tile{
		Positions: []Point{{0, 0}, {1, 1}, {2, 2}},
		Groups:    []uint16{0, 1, 1},
		Flags:     []uint8{0, 0, 1},
		Edges:     []Edge{{0, 1}, {0, 2}, {1, 2}},
	}
	buf, err := EncodeTile(in)
	if err != nil {
		t.Fatal(err)
	}
	// 16 + 33 = 49 → padded to 52, then 3 pairs
	if want := 52 + 3*8; len(buf) != want {
		t.Fatalf("len = %d, want %d", len(buf), want)
	}
	out, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Edges) != 3 || out.Edges[2] != (Edge{1, 2}) {
		t.Errorf("edges = %v", out.Edges)
	}
}

func TestEdgeSectionErrors(t *testing.T) {
	in := &Tile{
		Positions: []Point{{0, 0}, {1, 1}},
		Groups:    []uint16{0, 0},
		Flags:     []uint8{0, 0},
		Edges:     []Edge{{0, 1}},
	}
	if _, err := EncodeTile(&Tile{
		Positions: in.Positions, Groups: in.Groups, Flags: in.Flags,
		Edges: []Edge{{0, 5}},
	}); !errors.Is(err, ErrInvalid) {
		t.Errorf("EncodeTile out of range: err = %v", err)
	}

	buf, err := EncodeTile(in)
	if err != nil {
		t.Fatal(err)
	}

	ragged := append(append([]byte(nil), buf...), 0, 0, 0, 0)
	if _, err := Decode(ragged); !errors.Is(err, ErrFormat) {
		t.Errorf("ragged edge section: err = %v", err)
	}

	outOfRange := append([]byte(nil), buf...)
	binary.LittleEndian.PutUint32(outOfRange[len(outOfRange)-4:], 9)
	if _, err := Decode(outOfRange); !errors.Is(err, ErrFormat) {
		t.Errorf("out of range edge: err = %v", err)
	}
}

func TestClampCount(t *testing.T) {
	tests := []struct{ neighbors, want int }{
		{-3, 1},
		{0, 1},
		{24, 25},
		{1499, 1500},
		{5000, 1500},
	}
	for _, tt := range tests {
		if got := ClampCount(tt.neighbors); got != tt.want {
			t.Errorf("ClampCount(%d) = %d, want %d", tt.neighbors, got, tt.want)
		}
	}
}
