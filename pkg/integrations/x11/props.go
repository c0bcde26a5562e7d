package x11

import (
	"encoding/binary"

	"github.com/jezek/xgb/xproto"
)

// WM_NORMAL_HINTS flags
const (
	hintPMinSize = 1 << 4
	hintPMaxSize = 1 << 5
)

// _NET_WM_STATE client message actions
const (
	stateRemove = 0
	stateAdd    = 1
)

const (
	iconicState = 3

	// allDesktops is the _NET_WM_DESKTOP value of a sticky window
	allDesktops = 0xFFFFFFFF

	motifHintsDecorations = 1 << 1
)

// u32s encodes values as CARD32 in X11 byte order (little endian on the
// wire for every server xgb talks to)
func u32s(values ...uint32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return buf
}

func atomsToBytes(atoms []xproto.Atom) []byte {
	values := make([]uint32, len(atoms))
	for i, a := range atoms {
		values[i] = uint32(a)
	}
	return u32s(values...)
}

func bytesToAtoms(data []byte) []xproto.Atom {
	atoms := make([]xproto.Atom, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		atoms = append(atoms, xproto.Atom(binary.LittleEndian.Uint32(data[i:])))
	}
	return atoms
}

// normalHints builds a WM_NORMAL_HINTS value (18 CARD32s). Zero sizes
// leave the corresponding flag unset.
func normalHints(minW, minH, maxW, maxH uint32) []uint32 {
	hints := make([]uint32, 18)
	if minW > 0 || minH > 0 {
		hints[0] |= hintPMinSize
		hints[5], hints[6] = minW, minH
	}
	if maxW > 0 || maxH > 0 {
		hints[0] |= hintPMaxSize
		hints[7], hints[8] = maxW, maxH
	}
	return hints
}

// motifHints builds a _MOTIF_WM_HINTS value toggling server-side decorations
func motifHints(decorated bool) []uint32 {
	decorations := uint32(0)
	if decorated {
		decorations = 1
	}
	return []uint32{motifHintsDecorations, 0, decorations, 0, 0}
}

// withAtom returns atoms with a added or removed, preserving order
func withAtom(atoms []xproto.Atom, a xproto.Atom, add bool) []xproto.Atom {
	out := make([]xproto.Atom, 0, len(atoms)+1)
	for _, x := range atoms {
		if x != a {
			out = append(out, x)
		}
	}
	if add {
		out = append(out, a)
	}
	return out
}

func hasAtom(atoms []xproto.Atom, a xproto.Atom) bool {
	for _, x := range atoms {
		if x == a {
			return true
		}
	}
	return false
}
