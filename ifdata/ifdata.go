// Package ifdata implements C3, the IF_DATA codec: encode/decode routines
// for the two well-known tool-specific IF_DATA dialects embedded in A2L
// entities, CANAPE_EXT (Vector) and ASAP1B_CCP, against the fixed A2ML
// schema spec.md §4.3 describes. The A2ML schema compiler itself is out of
// scope (spec.md §1); this package hand-writes the typed encode/decode
// routines for exactly the two documented dialects, the way the teacher
// hand-writes small fixed-format binary codecs rather than deriving them
// from a schema engine (coprocessor/developer/mapfile/mapfile.go parses a
// fixed text format the same way -- by hand, field by field).
package ifdata

import (
	"encoding/binary"

	"github.com/jetsetilly/a2lsync/a2l"
	"github.com/jetsetilly/a2lsync/dwarf"
)

const (
	DialectCANAPEExt = "CANAPE_EXT"
	DialectASAP1BCCP = "ASAP1B_CCP"
)

// LinkMap is the decoded view of a CANAPE_EXT link_map sub-tree: the fields
// the updater actually touches, plus TrailingUnknown, which preserves any
// bytes this codec doesn't model so a round trip is bit-exact (§8 round-trip
// law: "unknown trailing fields are preserved bit-exact").
type LinkMap struct {
	SymbolName      string
	Address         uint32
	Datatype        byte
	BitOffset       byte
	Valid           bool
	TrailingUnknown []byte
}

// DecodeLinkMap parses a CANAPE_EXT IF_DATA blob. The wire layout is:
// [u16 name-len][name bytes][u32 address][u8 datatype][u8 bit_offset][u8 valid][trailing...].
func DecodeLinkMap(raw []byte) (LinkMap, bool) {
	var lm LinkMap
	if len(raw) < 2 {
		return lm, false
	}
	nameLen := int(binary.LittleEndian.Uint16(raw[0:2]))
	off := 2
	if off+nameLen > len(raw) {
		return lm, false
	}
	lm.SymbolName = string(raw[off : off+nameLen])
	off += nameLen
	if off+7 > len(raw) {
		return lm, false
	}
	lm.Address = binary.LittleEndian.Uint32(raw[off : off+4])
	off += 4
	lm.Datatype = raw[off]
	off++
	lm.BitOffset = raw[off]
	off++
	lm.Valid = raw[off] != 0
	off++
	lm.TrailingUnknown = append([]byte(nil), raw[off:]...)
	return lm, true
}

// Encode serializes lm back to the wire layout DecodeLinkMap expects,
// preserving TrailingUnknown verbatim.
func (lm LinkMap) Encode() []byte {
	out := make([]byte, 2+len(lm.SymbolName)+4+1+1+1+len(lm.TrailingUnknown))
	binary.LittleEndian.PutUint16(out[0:2], uint16(len(lm.SymbolName)))
	off := 2
	copy(out[off:], lm.SymbolName)
	off += len(lm.SymbolName)
	binary.LittleEndian.PutUint32(out[off:off+4], lm.Address)
	off += 4
	out[off] = lm.Datatype
	off++
	out[off] = lm.BitOffset
	off++
	if lm.Valid {
		out[off] = 1
	}
	off++
	copy(out[off:], lm.TrailingUnknown)
	return out
}

// DatatypeCode implements §4.3's "Datatype code table": high nibble flags
// (0x80 = valid-width, 0x40 = signed), low nibble = bit-size-minus-one when
// the width flag is set.
func DatatypeCode(t *dwarf.TypeInfo) byte {
	if t == nil {
		return 0
	}
	switch t.Kind {
	case dwarf.KindFloat:
		return 0x01
	case dwarf.KindDouble:
		return 0x02
	case dwarf.KindUint8:
		return 0x87
	case dwarf.KindUint16:
		return 0x8F
	case dwarf.KindUint32:
		return 0x9F
	case dwarf.KindUint64:
		return 0xBF
	case dwarf.KindSint8:
		return 0xC7
	case dwarf.KindSint16:
		return 0xCF
	case dwarf.KindSint32:
		return 0xDF
	case dwarf.KindSint64:
		return 0xFF
	case dwarf.KindEnum:
		return DatatypeCode(&dwarf.TypeInfo{Kind: sizeToIntKind(t.Size, t.IsSigned())})
	case dwarf.KindBitfield:
		signed := byte(0)
		if t.Signed {
			signed = 0x40
		}
		return 0x80 | signed | byte(t.BitSize-1)
	case dwarf.KindArray:
		return DatatypeCode(t.ElementType)
	default:
		return 0
	}
}

func sizeToIntKind(size int, signed bool) dwarf.Kind {
	switch size {
	case 1:
		if signed {
			return dwarf.KindSint8
		}
		return dwarf.KindUint8
	case 2:
		if signed {
			return dwarf.KindSint16
		}
		return dwarf.KindUint16
	case 8:
		if signed {
			return dwarf.KindSint64
		}
		return dwarf.KindUint64
	default:
		if signed {
			return dwarf.KindSint32
		}
		return dwarf.KindUint32
	}
}

// BitOffsetByte clamps t's normalized bit offset into a single byte for the
// wire format, 0 for non-bitfields.
func BitOffsetByte(t *dwarf.TypeInfo) byte {
	if t != nil && t.Kind == dwarf.KindBitfield {
		return byte(t.BitOffset)
	}
	return 0
}

// UpdateLinkMap implements the updater's per-entity CANAPE_EXT rewrite
// (§4.3: "mutate the relevant fields... and store the encoded form back,
// preserving all unknown content"). symbolName and address are the
// resolved values; t is nil when the entity failed to resolve, in which
// case only Zero below should be used instead.
func UpdateLinkMap(raw []byte, symbolName string, address uint64, t *dwarf.TypeInfo) []byte {
	lm, ok := DecodeLinkMap(raw)
	if !ok {
		lm = LinkMap{}
	}
	lm.SymbolName = symbolName
	lm.Address = uint32(address)
	lm.Datatype = DatatypeCode(t)
	lm.BitOffset = BitOffsetByte(t)
	lm.Valid = true
	return lm.Encode()
}

// Zero implements §4.3's "Zeroing": when an A2L entity's symbol no longer
// resolves, only the address and validity flag are cleared; the symbol name
// is kept as documentation.
func Zero(raw []byte) []byte {
	lm, ok := DecodeLinkMap(raw)
	if !ok {
		return raw
	}
	lm.Address = 0
	lm.Valid = false
	return lm.Encode()
}

// DPBlob is the decoded view of an ASAP1B_CCP DP_BLOB sub-tree.
type DPBlob struct {
	Size            uint32
	TrailingUnknown []byte
}

// DecodeDPBlob parses an ASAP1B_CCP DP_BLOB blob: [u32 size][trailing...].
func DecodeDPBlob(raw []byte) (DPBlob, bool) {
	if len(raw) < 4 {
		return DPBlob{}, false
	}
	return DPBlob{
		Size:            binary.LittleEndian.Uint32(raw[0:4]),
		TrailingUnknown: append([]byte(nil), raw[4:]...),
	}, true
}

// Encode serializes a DPBlob back to wire format.
func (b DPBlob) Encode() []byte {
	out := make([]byte, 4+len(b.TrailingUnknown))
	binary.LittleEndian.PutUint32(out[0:4], b.Size)
	copy(out[4:], b.TrailingUnknown)
	return out
}

// UpdateDPBlob implements §4.3's "Only size is updated: 1/2/4/8 for the
// corresponding primitive, element size for arrays of primitives; left
// unchanged for structs."
func UpdateDPBlob(raw []byte, t *dwarf.TypeInfo) []byte {
	b, ok := DecodeDPBlob(raw)
	if !ok {
		b = DPBlob{}
	}
	elem := t
	if elem != nil && elem.Kind == dwarf.KindArray {
		elem = elem.ElementType
	}
	if elem != nil && elem.IsComposite() {
		return b.Encode() // left unchanged for structs
	}
	if elem != nil {
		b.Size = uint32(elem.GetSize())
	}
	return b.Encode()
}

// FindIfData returns the first IfData entry of the given dialect, or nil.
func FindIfData(list []a2l.IfData, dialect string) *a2l.IfData {
	for i := range list {
		if list[i].Dialect == dialect {
			return &list[i]
		}
	}
	return nil
}
