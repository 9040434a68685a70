package lightnvm

import "github.com/ehrlich-b/go-lightnvm/internal/uapi"

// Opcode selects the physical operation of a submission
type Opcode uint16

const (
	OpErase Opcode = uapi.NVM_OP_ERASE
	OpWrite Opcode = uapi.NVM_OP_PWRITE
	OpRead  Opcode = uapi.NVM_OP_PREAD
)

func (o Opcode) String() string {
	switch o {
	case OpErase:
		return "ERASE"
	case OpWrite:
		return "WRITE"
	case OpRead:
		return "READ"
	default:
		return "UNKNOWN"
	}
}

// AccessFlag tells the media manager how many planes to drive at once
type AccessFlag uint16

const (
	AccessSingle AccessFlag = uapi.NVM_IO_SNGL_ACCESS
	AccessDual   AccessFlag = uapi.NVM_IO_DUAL_ACCESS
	AccessQuad   AccessFlag = uapi.NVM_IO_QUAD_ACCESS
)

// MarkState is the administrative state of a physical block
type MarkState uint16

const (
	MarkFree     MarkState = uapi.NVM_BLK_T_FREE
	MarkBad      MarkState = uapi.NVM_BLK_T_BAD
	MarkGrownBad MarkState = uapi.NVM_BLK_T_GRWN_BAD
)

func (s MarkState) String() string {
	switch s {
	case MarkFree:
		return "free"
	case MarkBad:
		return "bad"
	case MarkGrownBad:
		return "grown-bad"
	default:
		return "unknown"
	}
}

// Gateway is the media manager behind a Device. The kernel-backed
// implementation drives the lightnvm ioctls; media.Memory keeps everything
// in RAM.
//
// Implementations report failures with the error they observed. The Device
// wraps them, it never replaces them.
type Gateway interface {
	// Geometry reports the physical layout
	Geometry() (Geometry, error)

	// BlockGet reserves a free block on the given channel and lun and
	// returns its address and flags.
	BlockGet(channel, lun uint8) (Addr, uint16, error)

	// BlockPut returns a reserved block to the media manager
	BlockPut(addr Addr) error

	// Submit performs one physical operation over the address list and
	// returns the number of bytes transferred. buf is nil for erase.
	Submit(op Opcode, list []Addr, buf []byte, flags AccessFlag) (int, error)

	// Mark records the administrative state of a block
	Mark(addr Addr, state MarkState) error

	// Close releases the gateway
	Close() error
}

// Logger is the minimal logging hook accepted through Options
type Logger interface {
	Printf(format string, args ...interface{})
}
