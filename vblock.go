package lightnvm

import "fmt"

// VBlockState is the lifecycle state of a virtual block handle
type VBlockState int

const (
	// VBlockUnbound: created or freed, no device block behind it
	VBlockUnbound VBlockState = iota
	// VBlockReserved: owns a block on its device, I/O allowed
	VBlockReserved
	// VBlockReleased: the block went back to the media manager
	VBlockReleased
)

func (s VBlockState) String() string {
	switch s {
	case VBlockUnbound:
		return "unbound"
	case VBlockReserved:
		return "reserved"
	case VBlockReleased:
		return "released"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// VBlock is a virtual block: one physical block of a lun seen across all
// of the lun's planes. A VBlock is not safe for concurrent use; distinct
// VBlocks on one Device are.
type VBlock struct {
	dev   *Device
	addr  Addr
	flags uint16
	state VBlockState
}

// NewVBlock returns an unbound virtual block
func NewVBlock() *VBlock {
	return &VBlock{}
}

// NewVBlockOnDev adopts a block the caller already owns on dev. The
// returned block is reserved; Put hands it back to the media manager.
func NewVBlockOnDev(dev *Device, addr Addr) *VBlock {
	return &VBlock{
		dev:   dev,
		addr:  addr,
		state: VBlockReserved,
	}
}

// Get reserves a free block on channel 0, lun 0
func (v *VBlock) Get(dev *Device) error {
	return v.Gets(dev, 0, 0)
}

// Gets reserves a free block on the given channel and lun. It is legal on
// an unbound or released block. On failure the handle is left as it was.
func (v *VBlock) Gets(dev *Device, ch, lun uint8) error {
	if v == nil || dev == nil {
		return NewError("BLOCK_GET", ErrCodeInvalidParameters, "nil virtual block or device")
	}
	if v.state == VBlockReserved {
		return NewBlockError("BLOCK_GET", v.devName(), v.addr, ErrCodeInvalidState,
			"virtual block already holds a reservation")
	}

	addr, flags, err := dev.reserve(ch, lun)
	if err != nil {
		return err
	}

	v.dev = dev
	v.addr = addr
	v.flags = flags
	v.state = VBlockReserved
	return nil
}

// Put releases the reserved block. If the media manager refuses, the
// block stays reserved and the error is returned.
func (v *VBlock) Put() error {
	if v == nil {
		return NewError("BLOCK_PUT", ErrCodeInvalidParameters, "nil virtual block")
	}
	if v.state != VBlockReserved {
		return NewBlockError("BLOCK_PUT", v.devName(), v.addr, ErrCodeInvalidState,
			fmt.Sprintf("virtual block is %s", v.state))
	}
	if v.dev == nil {
		return NewBlockError("BLOCK_PUT", "", v.addr, ErrCodeInvalidParameters, "virtual block has no device")
	}

	if err := v.dev.release(v.addr); err != nil {
		return err
	}

	v.state = VBlockReleased
	return nil
}

// Free drops the handle without talking to the device. A reserved block
// is not released; call Put first.
func (v *VBlock) Free() {
	if v == nil {
		return
	}
	*v = VBlock{}
}

// Addr returns the block address
func (v *VBlock) Addr() Addr {
	return v.addr
}

// PPA returns the raw block address
func (v *VBlock) PPA() uint64 {
	return v.addr.PPA()
}

// Flags returns the flags the media manager reported on reservation
func (v *VBlock) Flags() uint16 {
	return v.flags
}

// Device returns the device the block was reserved on, nil when unbound
func (v *VBlock) Device() *Device {
	return v.dev
}

// State returns the lifecycle state
func (v *VBlock) State() VBlockState {
	return v.state
}

// IsOperable reports whether I/O on the block is allowed
func (v *VBlock) IsOperable() bool {
	return v != nil && v.state == VBlockReserved && !v.dev.IsClosed()
}

func (v *VBlock) String() string {
	return fmt.Sprintf("vblock { state(%s), dev(%s), flags(0x%04x), %s }",
		v.state, v.devName(), v.flags, v.addr)
}

func (v *VBlock) devName() string {
	return v.dev.Name()
}
