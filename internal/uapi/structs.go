package uapi

import (
	"path/filepath"
	"unsafe"
)

// NvmIoctlDevVblk carries a block address through BLOCK_GET, BLOCK_PUT and MARK (16 bytes):
//
//	struct nvm_ioctl_dev_vblk {
//	  __u64 ppa;     // IN: lun hint (GET) or block (PUT/MARK); OUT: reserved block (GET)
//	  __u16 flags;   // OUT: block status (GET); IN: block state (MARK)
//	  __u16 rsvd16;
//	  __u32 rsvd32;
//	};
type NvmIoctlDevVblk struct {
	PPA    uint64 // packed physical address
	Flags  uint16 // status or mark state
	Rsvd16 uint16 // reserved
	Rsvd32 uint32 // reserved
}

// NvmIoctlDevVblkSize is the wire size of NvmIoctlDevVblk
const NvmIoctlDevVblkSize = 16

var _ [NvmIoctlDevVblkSize]byte = [unsafe.Sizeof(NvmIoctlDevVblk{})]byte{}

// NvmIoctlDevPIO submits one batch of physical addresses (56 bytes):
//
//	struct nvm_ioctl_dev_pio {
//	  __u16 opcode;        // NVM_OP_*
//	  __u16 flags;         // NVM_IO_*_ACCESS
//	  __u32 nppas;         // entries in the ppa list
//	  __u64 ppas;          // the ppa itself when nppas == 1, else address of the list
//	  __u64 addr;          // data buffer
//	  __u64 metadata;      // out-of-band buffer
//	  __u32 data_len;
//	  __u32 metadata_len;
//	  __u64 result;        // OUT: per-ppa completion bitmap
//	  __u32 status;        // OUT: device status
//	  __u32 rsvd;
//	};
type NvmIoctlDevPIO struct {
	Opcode      uint16
	Flags       uint16
	NPPAs       uint32
	PPAs        uint64
	Addr        uint64
	Metadata    uint64
	DataLen     uint32
	MetadataLen uint32
	Result      uint64
	Status      uint32
	Rsvd        uint32
}

// NvmIoctlDevPIOSize is the wire size of NvmIoctlDevPIO
const NvmIoctlDevPIOSize = 56

var _ [NvmIoctlDevPIOSize]byte = [unsafe.Sizeof(NvmIoctlDevPIO{})]byte{}

// Failed reports whether the device flagged the request
func (p *NvmIoctlDevPIO) Failed() bool {
	return p.Status != 0
}

// NvmDevicePath returns the path to the device node
func NvmDevicePath(devDir, name string) string {
	return filepath.Join(devDir, name)
}

// NvmSysfsPath returns the path of a lightnvm geometry attribute
func NvmSysfsPath(sysfsRoot, name, attrDir, attr string) string {
	return filepath.Join(sysfsRoot, name, attrDir, attr)
}
