// Package uapi provides Linux kernel UAPI definitions for the lightnvm media manager
package uapi

// ioctl type for lightnvm commands
const NVM_IOCTL = 'L'

// Device commands (ioctl nr)
const (
	NVM_INFO_CMD          = 0x20
	NVM_GET_DEVICES_CMD   = 0x21
	NVM_DEV_CREATE_CMD    = 0x22
	NVM_DEV_REMOVE_CMD    = 0x23
	NVM_DEV_INIT_CMD      = 0x24
	NVM_DEV_FACTORY_CMD   = 0x25
	NVM_DEV_BLOCK_GET_CMD = 0x26
	NVM_DEV_BLOCK_PUT_CMD = 0x27
	NVM_DEV_PIO_CMD       = 0x28
	NVM_DEV_MARK_CMD      = 0x29
)

// Physical I/O opcodes
const (
	NVM_OP_ERASE  = 0x90
	NVM_OP_PWRITE = 0x91
	NVM_OP_PREAD  = 0x92
)

// Physical I/O flags
const (
	NVM_IO_SNGL_ACCESS = 0x0
	NVM_IO_DUAL_ACCESS = 0x1
	NVM_IO_QUAD_ACCESS = 0x2
)

// Block states accepted by NVM_DEV_MARK
const (
	NVM_BLK_T_FREE     = 0x0
	NVM_BLK_T_BAD      = 0x1
	NVM_BLK_T_GRWN_BAD = 0x2
)

// Limits
const (
	// NVM_MAX_VLBA is the largest ppa list one PIO request may carry
	NVM_MAX_VLBA = 64
)

// ioctl encoding constants
const (
	_IOC_WRITE     = 1
	_IOC_READ      = 2
	_IOC_SIZEBITS  = 14
	_IOC_DIRBITS   = 2
	_IOC_TYPEBITS  = 8
	_IOC_NRBITS    = 8
	_IOC_NRSHIFT   = 0
	_IOC_TYPESHIFT = _IOC_NRSHIFT + _IOC_NRBITS
	_IOC_SIZESHIFT = _IOC_TYPESHIFT + _IOC_TYPEBITS
	_IOC_DIRSHIFT  = _IOC_SIZESHIFT + _IOC_SIZEBITS
)

// IoctlEncode creates an ioctl command number
func IoctlEncode(dir, typ, nr, size uint32) uint32 {
	return (dir << _IOC_DIRSHIFT) |
		(size << _IOC_SIZESHIFT) |
		(typ << _IOC_TYPESHIFT) |
		(nr << _IOC_NRSHIFT)
}

// NvmVblkCmd encodes a block ownership command (GET, PUT, MARK)
func NvmVblkCmd(cmd uint32) uint32 {
	return IoctlEncode(_IOC_READ|_IOC_WRITE, NVM_IOCTL, cmd, NvmIoctlDevVblkSize)
}

// NvmPIOCmd encodes a physical I/O command
func NvmPIOCmd() uint32 {
	return IoctlEncode(_IOC_READ|_IOC_WRITE, NVM_IOCTL, NVM_DEV_PIO_CMD, NvmIoctlDevPIOSize)
}
