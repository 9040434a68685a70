package ctrl

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/ehrlich-b/go-lightnvm/internal/constants"
	"github.com/ehrlich-b/go-lightnvm/internal/logging"
	"github.com/ehrlich-b/go-lightnvm/internal/uapi"
)

// Controller talks to the lightnvm media manager through the device node
type Controller struct {
	name   string
	fd     int
	config Config
	logger *logging.Logger
}

// NewController opens the device node for name
func NewController(name string, config Config) (*Controller, error) {
	path := uapi.NvmDevicePath(config.DevDir, name)
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	c := &Controller{
		name:   name,
		fd:     fd,
		config: config,
		logger: logging.Default().WithDevice(name),
	}
	c.logger.Debug("opened device node", "path", path, "fd", fd)

	return c, nil
}

// Close releases the device node
func (c *Controller) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}

// Name returns the device name the controller was opened with
func (c *Controller) Name() string {
	return c.name
}

// Geometry queries the device shape from sysfs
func (c *Controller) Geometry() (Geometry, error) {
	return QueryGeometry(c.config.SysfsRoot, c.name)
}

// BlockGet asks the media manager for a free block on the lun encoded in hint
func (c *Controller) BlockGet(hint uint64) (uint64, uint16, error) {
	ctl := &uapi.NvmIoctlDevVblk{PPA: hint}

	c.logger.Debug("submitting BLOCK_GET", "hint", fmt.Sprintf("0x%016x", hint))

	out, err := c.vblkCmd(uapi.NVM_DEV_BLOCK_GET_CMD, ctl)
	if err != nil {
		return 0, 0, fmt.Errorf("BLOCK_GET failed: %w", err)
	}

	c.logger.Debug("BLOCK_GET completed", "ppa", fmt.Sprintf("0x%016x", out.PPA), "flags", out.Flags)
	return out.PPA, out.Flags, nil
}

// BlockPut hands a block back to the media manager
func (c *Controller) BlockPut(ppa uint64) error {
	ctl := &uapi.NvmIoctlDevVblk{PPA: ppa}

	c.logger.Debug("submitting BLOCK_PUT", "ppa", fmt.Sprintf("0x%016x", ppa))

	if _, err := c.vblkCmd(uapi.NVM_DEV_BLOCK_PUT_CMD, ctl); err != nil {
		return fmt.Errorf("BLOCK_PUT failed: %w", err)
	}
	return nil
}

// Mark records the state of a block
func (c *Controller) Mark(ppa uint64, state uint16) error {
	ctl := &uapi.NvmIoctlDevVblk{PPA: ppa, Flags: state}

	c.logger.Debug("submitting MARK", "ppa", fmt.Sprintf("0x%016x", ppa), "state", state)

	if _, err := c.vblkCmd(uapi.NVM_DEV_MARK_CMD, ctl); err != nil {
		return fmt.Errorf("MARK failed: %w", err)
	}
	return nil
}

// Submit issues one physical I/O batch and returns the bytes transferred
func (c *Controller) Submit(opcode, flags uint16, ppas []uint64, buf []byte) (int, error) {
	if len(ppas) == 0 || len(ppas) > uapi.NVM_MAX_VLBA {
		return 0, fmt.Errorf("PIO with %d addresses: %w", len(ppas), unix.EINVAL)
	}

	pio := &uapi.NvmIoctlDevPIO{
		Opcode:  opcode,
		Flags:   flags,
		NPPAs:   uint32(len(ppas)),
		DataLen: uint32(len(buf)),
	}

	// A single address travels inline, a list by reference
	if len(ppas) == 1 {
		pio.PPAs = ppas[0]
	} else {
		pio.PPAs = uint64(uintptr(unsafe.Pointer(&ppas[0])))
	}
	if len(buf) > 0 {
		pio.Addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
	}

	c.logger.Debug("submitting PIO",
		"opcode", fmt.Sprintf("0x%x", opcode),
		"flags", flags,
		"nppas", pio.NPPAs,
		"data_len", pio.DataLen)

	data := uapi.Marshal(pio)
	err := c.ioctl(uapi.NvmPIOCmd(), data)

	// The kernel reads the list and buffer through raw addresses
	runtime.KeepAlive(ppas)
	runtime.KeepAlive(buf)

	if err != nil {
		return 0, fmt.Errorf("PIO opcode 0x%x failed: %w", opcode, err)
	}

	if err := uapi.Unmarshal(data, pio); err != nil {
		return 0, err
	}
	if pio.Failed() {
		return 0, fmt.Errorf("PIO opcode 0x%x failed with status 0x%x: %w", opcode, pio.Status, unix.EIO)
	}

	return int(pio.DataLen), nil
}

func (c *Controller) vblkCmd(cmd uint32, ctl *uapi.NvmIoctlDevVblk) (*uapi.NvmIoctlDevVblk, error) {
	data := uapi.Marshal(ctl)
	if err := c.ioctl(uapi.NvmVblkCmd(cmd), data); err != nil {
		return nil, err
	}

	out := &uapi.NvmIoctlDevVblk{}
	if err := uapi.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Controller) ioctl(req uint32, data []byte) error {
	if c.fd < 0 {
		return unix.EBADF
	}

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(c.fd), uintptr(req), uintptr(unsafe.Pointer(&data[0])))
	runtime.KeepAlive(data)
	if errno != 0 {
		return errno
	}
	return nil
}

// QueryGeometry reads the lightnvm attributes of a block device from sysfs.
// All missing or malformed attributes are reported together.
func QueryGeometry(sysfsRoot, name string) (Geometry, error) {
	var (
		geo  Geometry
		errs error
	)

	attrs := []struct {
		name string
		dst  *int
	}{
		{constants.AttrChannels, &geo.NChannels},
		{constants.AttrLuns, &geo.NLuns},
		{constants.AttrPlanes, &geo.NPlanes},
		{constants.AttrBlocks, &geo.NBlocks},
		{constants.AttrPages, &geo.NPages},
		{constants.AttrSecPerPage, &geo.NSectors},
		{constants.AttrSectorSize, &geo.NBytes},
	}

	for _, attr := range attrs {
		v, err := readAttr(uapi.NvmSysfsPath(sysfsRoot, name, constants.LightnvmAttrDir, attr.name))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		*attr.dst = v
	}

	if errs != nil {
		return Geometry{}, errs
	}
	return geo, nil
}

func readAttr(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %w", path, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("attribute %s: value %d must be positive", path, v)
	}
	return v, nil
}
