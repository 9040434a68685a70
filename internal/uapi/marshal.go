package uapi

import (
	"encoding/binary"
)

// Marshal converts a command struct to its little-endian wire bytes
func Marshal(v interface{}) []byte {
	switch val := v.(type) {
	case *NvmIoctlDevVblk:
		return marshalDevVblk(val)
	case *NvmIoctlDevPIO:
		return marshalDevPIO(val)
	default:
		return nil
	}
}

// Unmarshal converts wire bytes back to a command struct
func Unmarshal(data []byte, v interface{}) error {
	switch val := v.(type) {
	case *NvmIoctlDevVblk:
		return unmarshalDevVblk(data, val)
	case *NvmIoctlDevPIO:
		return unmarshalDevPIO(data, val)
	default:
		return ErrInvalidType
	}
}

func marshalDevVblk(v *NvmIoctlDevVblk) []byte {
	buf := make([]byte, NvmIoctlDevVblkSize)

	binary.LittleEndian.PutUint64(buf[0:8], v.PPA)
	binary.LittleEndian.PutUint16(buf[8:10], v.Flags)
	binary.LittleEndian.PutUint16(buf[10:12], v.Rsvd16)
	binary.LittleEndian.PutUint32(buf[12:16], v.Rsvd32)

	return buf
}

func unmarshalDevVblk(data []byte, v *NvmIoctlDevVblk) error {
	if len(data) < NvmIoctlDevVblkSize {
		return ErrInsufficientData
	}

	v.PPA = binary.LittleEndian.Uint64(data[0:8])
	v.Flags = binary.LittleEndian.Uint16(data[8:10])
	v.Rsvd16 = binary.LittleEndian.Uint16(data[10:12])
	v.Rsvd32 = binary.LittleEndian.Uint32(data[12:16])

	return nil
}

func marshalDevPIO(p *NvmIoctlDevPIO) []byte {
	buf := make([]byte, NvmIoctlDevPIOSize)

	binary.LittleEndian.PutUint16(buf[0:2], p.Opcode)
	binary.LittleEndian.PutUint16(buf[2:4], p.Flags)
	binary.LittleEndian.PutUint32(buf[4:8], p.NPPAs)
	binary.LittleEndian.PutUint64(buf[8:16], p.PPAs)
	binary.LittleEndian.PutUint64(buf[16:24], p.Addr)
	binary.LittleEndian.PutUint64(buf[24:32], p.Metadata)
	binary.LittleEndian.PutUint32(buf[32:36], p.DataLen)
	binary.LittleEndian.PutUint32(buf[36:40], p.MetadataLen)
	binary.LittleEndian.PutUint64(buf[40:48], p.Result)
	binary.LittleEndian.PutUint32(buf[48:52], p.Status)
	binary.LittleEndian.PutUint32(buf[52:56], p.Rsvd)

	return buf
}

func unmarshalDevPIO(data []byte, p *NvmIoctlDevPIO) error {
	if len(data) < NvmIoctlDevPIOSize {
		return ErrInsufficientData
	}

	p.Opcode = binary.LittleEndian.Uint16(data[0:2])
	p.Flags = binary.LittleEndian.Uint16(data[2:4])
	p.NPPAs = binary.LittleEndian.Uint32(data[4:8])
	p.PPAs = binary.LittleEndian.Uint64(data[8:16])
	p.Addr = binary.LittleEndian.Uint64(data[16:24])
	p.Metadata = binary.LittleEndian.Uint64(data[24:32])
	p.DataLen = binary.LittleEndian.Uint32(data[32:36])
	p.MetadataLen = binary.LittleEndian.Uint32(data[36:40])
	p.Result = binary.LittleEndian.Uint64(data[40:48])
	p.Status = binary.LittleEndian.Uint32(data[48:52])
	p.Rsvd = binary.LittleEndian.Uint32(data[52:56])

	return nil
}

// Error definitions
type MarshalError string

func (e MarshalError) Error() string {
	return string(e)
}

const (
	ErrInsufficientData MarshalError = "insufficient data for unmarshaling"
	ErrInvalidType      MarshalError = "invalid type for marshaling"
)
