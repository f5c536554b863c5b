package dwarf

import (
	"encoding/binary"
	"fmt"
)

// addressSize is the pointer width of the targets this tool deals with:
// automotive ECU coprocessors are uniformly 32-bit (ARM Cortex-M/R class),
// so unlike a general-purpose DWARF consumer we don't need to read the
// per-compile-unit address_size field out of the (unexposed, in Go's
// stdlib) CU header.
const addressSize = 4

const (
	opAddr         = 0x03
	opAddrx        = 0xa1
	opGNUAddrIndex = 0xfb
	opConstu       = 0x10
	opPlusUconst   = 0x23
)

// locationResult is the outcome of evaluating a DW_AT_location expression.
type locationResult struct {
	address uint64
	ok      bool
}

// evalAddressLocation evaluates expr as described in §4.1: "addresses only
// -- skip frame-relative, register-relative, and RequiresFrameBase results"
// and "resolve RequiresIndexedAddress via .debug_addr using the unit's
// DW_AT_addr_base; reject anything else."
//
// This deliberately does not implement the general DWARF expression stack
// machine (register ops, DW_OP_fbreg, DW_OP_piece, arithmetic) because none
// of those ever describe a global variable's address -- only a constant
// DW_OP_addr, an indexed DW_OP_addrx/DW_OP_GNU_addr_index, or one of those
// followed by DW_OP_plus_uconst (a C++ pointer-to-member style adjustment)
// can.
func evalAddressLocation(expr []byte, debugAddr []byte, addrBase int64, hasAddrBase bool) (locationResult, error) {
	if len(expr) == 0 {
		return locationResult{}, nil
	}

	op := expr[0]
	rest := expr[1:]

	switch op {
	case opAddr:
		if len(rest) < addressSize {
			return locationResult{}, fmt.Errorf("truncated DW_OP_addr operand")
		}
		addr := uint64(binary.LittleEndian.Uint32(rest[:addressSize]))
		// initial value is implicitly zero; embedded targets are
		// unrelocated so no base adjustment is applied (§4.1 "resume with
		// zero for relocated addresses").
		return maybeFollowWithAdjustment(addr, rest[addressSize:])

	case opAddrx, opGNUAddrIndex:
		idx, n := decodeUleb128(rest)
		if n == 0 {
			return locationResult{}, fmt.Errorf("truncated address-index operand")
		}
		if !hasAddrBase {
			return locationResult{}, fmt.Errorf("indexed address with no DW_AT_addr_base")
		}
		off := addrBase + int64(idx)*addressSize
		if off < 0 || int(off)+addressSize > len(debugAddr) {
			return locationResult{}, fmt.Errorf("address index %d out of range of .debug_addr", idx)
		}
		addr := uint64(binary.LittleEndian.Uint32(debugAddr[off : off+addressSize]))
		return maybeFollowWithAdjustment(addr, rest[n:])

	default:
		// register-relative, frame-relative, or anything requiring
		// evaluation context we don't have: not an address.
		return locationResult{}, nil
	}
}

// maybeFollowWithAdjustment handles the common "DW_OP_addr ; DW_OP_plus_uconst N"
// idiom and otherwise requires the expression to be exhausted (a bare
// address), rejecting anything more exotic.
func maybeFollowWithAdjustment(base uint64, rest []byte) (locationResult, error) {
	if len(rest) == 0 {
		return locationResult{address: base, ok: true}, nil
	}
	if rest[0] == opPlusUconst {
		n, sz := decodeUleb128(rest[1:])
		if sz == 0 {
			return locationResult{}, fmt.Errorf("truncated DW_OP_plus_uconst operand")
		}
		if len(rest) == 1+sz {
			return locationResult{address: base + n, ok: true}, nil
		}
	}
	// anything else trailing means this isn't a simple address expression;
	// it's RequiresFrameBase or similar, and is rejected.
	return locationResult{}, nil
}

func decodeUleb128(b []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, c := range b {
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
		if shift > 63 {
			return 0, 0
		}
	}
	return 0, 0
}
