package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/subcommands"
	"go.uber.org/multierr"

	lightnvm "github.com/ehrlich-b/go-lightnvm"
	"github.com/ehrlich-b/go-lightnvm/internal/logging"
)

// deviceFlags are shared by every command that opens a device
type deviceFlags struct {
	name      string
	sysfsRoot string
	access    uint
}

func (d *deviceFlags) register(f *flag.FlagSet) {
	f.StringVar(&d.name, "dev", "nvme0n1", "Open-channel device name under /dev")
	f.StringVar(&d.sysfsRoot, "sysfs", "", "Override the sysfs root holding device attributes")
	f.UintVar(&d.access, "access", uint(lightnvm.DefaultAccessFlag), "Plane access mode (0 single, 1 dual, 2 quad)")
}

func (d *deviceFlags) open() (*lightnvm.Device, error) {
	opts := lightnvm.DefaultOptions()
	opts.AccessFlag = lightnvm.AccessFlag(d.access)
	if d.sysfsRoot != "" {
		opts.SysfsRoot = d.sysfsRoot
	}
	return lightnvm.Open(d.name, opts)
}

// withDevice opens the device, runs fn and closes the device again
func (d *deviceFlags) withDevice(fn func(dev *lightnvm.Device) error) subcommands.ExitStatus {
	dev, err := d.open()
	if err != nil {
		logging.Error("failed to open device", "device", d.name, "error", err)
		return subcommands.ExitFailure
	}

	err = fn(dev)
	err = multierr.Append(err, dev.Close())
	if err != nil {
		logging.Error("command failed", "device", d.name, "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func parsePPA(s string) (lightnvm.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ppa %q: %w", s, err)
	}
	return lightnvm.Addr(v), nil
}

// adopt wraps a block reserved by an earlier invocation
func adopt(dev *lightnvm.Device, ppa string) (*lightnvm.VBlock, error) {
	addr, err := parsePPA(ppa)
	if err != nil {
		return nil, err
	}
	return lightnvm.NewVBlockOnDev(dev, addr), nil
}

type geoCmd struct {
	dev     deviceFlags
	jsonOut bool
}

func (*geoCmd) Name() string     { return "geo" }
func (*geoCmd) Synopsis() string { return "print device geometry" }
func (*geoCmd) Usage() string {
	return `geo [-dev name] [-json]:
  Print the geometry of an open-channel device.
`
}

func (c *geoCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.BoolVar(&c.jsonOut, "json", false, "Print device info as JSON")
}

func (c *geoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		if c.jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(dev.Info())
		}

		geo := dev.Geometry()
		fmt.Println(geo)
		fmt.Printf("Capacity: %s\n", humanize.IBytes(uint64(geo.TotalBytes())))
		fmt.Printf("Virtual block: %s (%d pages of %s)\n",
			humanize.IBytes(uint64(geo.VBlockBytes())), geo.NPages(), humanize.IBytes(uint64(geo.VPageBytes())))
		return nil
	})
}

type addrCmd struct {
	ppa              string
	ch, lun, pl, sec uint
	blk, pg          uint
}

func (*addrCmd) Name() string     { return "addr" }
func (*addrCmd) Synopsis() string { return "encode or decode a physical address" }
func (*addrCmd) Usage() string {
	return `addr -ppa value | addr [-ch n] [-lun n] [-pl n] [-blk n] [-pg n] [-sec n]:
  Decode a raw address, or encode one from its fields.
`
}

func (c *addrCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ppa, "ppa", "", "Raw address to decode")
	f.UintVar(&c.ch, "ch", 0, "Channel")
	f.UintVar(&c.lun, "lun", 0, "Lun")
	f.UintVar(&c.pl, "pl", 0, "Plane")
	f.UintVar(&c.blk, "blk", 0, "Block")
	f.UintVar(&c.pg, "pg", 0, "Page")
	f.UintVar(&c.sec, "sec", 0, "Sector")
}

func (c *addrCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ppa != "" {
		addr, err := parsePPA(c.ppa)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		fmt.Println(addr)
		return subcommands.ExitSuccess
	}

	addr := lightnvm.PackGeneric(lightnvm.GenericAddr{
		Channel: uint8(c.ch),
		Lun:     uint8(c.lun),
		Plane:   uint8(c.pl),
		Block:   uint16(c.blk),
		Page:    uint16(c.pg),
		Sector:  uint8(c.sec),
	})
	fmt.Println(addr)
	return subcommands.ExitSuccess
}

type getCmd struct {
	dev     deviceFlags
	ch, lun uint
}

func (*getCmd) Name() string     { return "get" }
func (*getCmd) Synopsis() string { return "reserve a free block" }
func (*getCmd) Usage() string {
	return `get [-dev name] [-ch n] [-lun n]:
  Reserve a free block and print its address. The block stays reserved
  until released with put.
`
}

func (c *getCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.UintVar(&c.ch, "ch", 0, "Channel to reserve on")
	f.UintVar(&c.lun, "lun", 0, "Lun to reserve on")
}

func (c *getCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		vblk := lightnvm.NewVBlock()
		if err := vblk.Gets(dev, uint8(c.ch), uint8(c.lun)); err != nil {
			return err
		}
		fmt.Println(vblk)
		fmt.Printf("0x%016x\n", vblk.PPA())
		return nil
	})
}

type putCmd struct {
	dev deviceFlags
	ppa string
}

func (*putCmd) Name() string     { return "put" }
func (*putCmd) Synopsis() string { return "release a reserved block" }
func (*putCmd) Usage() string {
	return `put [-dev name] -ppa value:
  Hand a reserved block back to the media manager.
`
}

func (c *putCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.StringVar(&c.ppa, "ppa", "", "Address of the reserved block")
}

func (c *putCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		vblk, err := adopt(dev, c.ppa)
		if err != nil {
			return err
		}
		return vblk.Put()
	})
}

type markCmd struct {
	dev   deviceFlags
	ppa   string
	state string
}

func (*markCmd) Name() string     { return "mark" }
func (*markCmd) Synopsis() string { return "mark a block free, bad or grown-bad" }
func (*markCmd) Usage() string {
	return `mark [-dev name] -ppa value -state free|bad|grown-bad:
  Record the administrative state of a block.
`
}

func (c *markCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.StringVar(&c.ppa, "ppa", "", "Block address")
	f.StringVar(&c.state, "state", "bad", "New state: free, bad or grown-bad")
}

func (c *markCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var state lightnvm.MarkState
	switch c.state {
	case "free":
		state = lightnvm.MarkFree
	case "bad":
		state = lightnvm.MarkBad
	case "grown-bad":
		state = lightnvm.MarkGrownBad
	default:
		fmt.Fprintf(os.Stderr, "unknown state %q\n", c.state)
		return subcommands.ExitUsageError
	}

	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		addr, err := parsePPA(c.ppa)
		if err != nil {
			return err
		}
		return dev.Mark(addr, state)
	})
}

type eraseCmd struct {
	dev deviceFlags
	ppa string
}

func (*eraseCmd) Name() string     { return "erase" }
func (*eraseCmd) Synopsis() string { return "erase a reserved block" }
func (*eraseCmd) Usage() string {
	return `erase [-dev name] -ppa value:
  Erase every plane of a reserved block.
`
}

func (c *eraseCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.StringVar(&c.ppa, "ppa", "", "Address of the reserved block")
}

func (c *eraseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		vblk, err := adopt(dev, c.ppa)
		if err != nil {
			return err
		}
		_, err = vblk.Erase()
		return err
	})
}

type writeCmd struct {
	dev  deviceFlags
	ppa  string
	page int
	in   string
}

func (*writeCmd) Name() string     { return "write" }
func (*writeCmd) Synopsis() string { return "write a page or a whole block" }
func (*writeCmd) Usage() string {
	return `write [-dev name] -ppa value [-page n] [-in file]:
  Write one page stripe, or the whole block when -page is negative.
  Without -in the buffer is filled with a repeating A..Z pattern.
`
}

func (c *writeCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.StringVar(&c.ppa, "ppa", "", "Address of the reserved block")
	f.IntVar(&c.page, "page", -1, "Page to write (-1 for the whole block)")
	f.StringVar(&c.in, "in", "", "File with exactly one page or block of data")
}

func (c *writeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		vblk, err := adopt(dev, c.ppa)
		if err != nil {
			return err
		}

		geo := dev.Geometry()
		size := geo.VBlockBytes()
		if c.page >= 0 {
			size = geo.VPageBytes()
		}

		buf := make([]byte, size)
		if c.in == "" {
			lightnvm.FillBuffer(buf)
		} else {
			data, err := os.ReadFile(c.in)
			if err != nil {
				return err
			}
			if len(data) != size {
				return fmt.Errorf("%s holds %s, want %s", c.in,
					humanize.IBytes(uint64(len(data))), humanize.IBytes(uint64(size)))
			}
			copy(buf, data)
		}

		if c.page >= 0 {
			n, err := vblk.PageWrite(buf, c.page)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s to page %d\n", humanize.IBytes(uint64(n)), c.page)
			return nil
		}

		res, err := vblk.Write(buf)
		fmt.Printf("wrote %s in %d pages\n", humanize.IBytes(uint64(res.Bytes)), res.Pages)
		if err != nil {
			return fmt.Errorf("block write stopped at page %d: %w", res.FailedPage, err)
		}
		return nil
	})
}

type readCmd struct {
	dev  deviceFlags
	ppa  string
	page int
	out  string
}

func (*readCmd) Name() string     { return "read" }
func (*readCmd) Synopsis() string { return "read a page or a whole block" }
func (*readCmd) Usage() string {
	return `read [-dev name] -ppa value [-page n] [-out file]:
  Read one page stripe, or the whole block when -page is negative, and
  write it to -out (stdout when empty).
`
}

func (c *readCmd) SetFlags(f *flag.FlagSet) {
	c.dev.register(f)
	f.StringVar(&c.ppa, "ppa", "", "Address of the reserved block")
	f.IntVar(&c.page, "page", -1, "Page to read (-1 for the whole block)")
	f.StringVar(&c.out, "out", "", "Output file")
}

func (c *readCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.dev.withDevice(func(dev *lightnvm.Device) error {
		vblk, err := adopt(dev, c.ppa)
		if err != nil {
			return err
		}

		geo := dev.Geometry()
		var buf []byte
		if c.page >= 0 {
			buf = geo.NewVPageBuffer()
			if _, err := vblk.PageRead(buf, c.page); err != nil {
				return err
			}
		} else {
			buf = geo.NewVBlockBuffer()
			res, err := vblk.Read(buf)
			if err != nil {
				return fmt.Errorf("block read stopped at page %d: %w", res.FailedPage, err)
			}
		}

		if c.out == "" {
			_, err = os.Stdout.Write(buf)
			return err
		}
		if err := os.WriteFile(c.out, buf, 0o644); err != nil {
			return err
		}
		logging.Info("read complete", "bytes", humanize.IBytes(uint64(len(buf))), "file", c.out)
		return nil
	})
}
