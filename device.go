// Package lightnvm provides access to open-channel SSDs through the Linux
// lightnvm media manager: physical addressing, device geometry and
// virtual blocks with page- and block-granular I/O.
package lightnvm

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/ehrlich-b/go-lightnvm/internal/ctrl"
	"github.com/ehrlich-b/go-lightnvm/internal/logging"
)

// Device is an open handle on an open-channel SSD. It owns the gateway it
// was built on and releases it on Close. A Device may be shared between
// goroutines; the virtual blocks reserved through it may not.
type Device struct {
	name   string
	gw     Gateway
	geo    Geometry
	access AccessFlag
	closed atomic.Bool

	// Metrics and observability
	metrics  *Metrics
	observer Observer
	logger   *logging.Logger
	printf   Logger
}

// Options contains optional settings for opening a device.
// A nil *Options is the same as DefaultOptions().
type Options struct {
	// Logger for lifecycle messages (if nil, no logging)
	Logger Logger

	// Observer for metrics collection (if nil, the device's own Metrics
	// are recorded)
	Observer Observer

	// AccessFlag is passed with every submission. Note that the zero value
	// is AccessSingle; DefaultOptions selects AccessDual.
	AccessFlag AccessFlag

	// DevDir and SysfsRoot locate the device node and its attributes.
	// Only Open uses them; empty means the defaults.
	DevDir    string
	SysfsRoot string
}

// DefaultOptions returns default device options
func DefaultOptions() *Options {
	config := ctrl.DefaultConfig()
	return &Options{
		AccessFlag: DefaultAccessFlag,
		DevDir:     config.DevDir,
		SysfsRoot:  config.SysfsRoot,
	}
}

// Open opens the open-channel device /dev/<name> and reads its geometry
// from sysfs.
//
// Example:
//
//	dev, err := lightnvm.Open("nvme0n1", nil)
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
func Open(name string, options *Options) (*Device, error) {
	if name == "" {
		return nil, NewError("OPEN", ErrCodeInvalidParameters, "empty device name")
	}
	if options == nil {
		options = DefaultOptions()
	}

	config := ctrl.DefaultConfig()
	if options.DevDir != "" {
		config.DevDir = options.DevDir
	}
	if options.SysfsRoot != "" {
		config.SysfsRoot = options.SysfsRoot
	}

	c, err := ctrl.NewController(name, config)
	if err != nil {
		e := WrapError("OPEN", err)
		e.Device = name
		return nil, e
	}

	dev, err := NewDevice(name, &kernelGateway{c: c}, options)
	if err != nil {
		return nil, multierr.Append(err, c.Close())
	}
	return dev, nil
}

// NewDevice builds a Device on an arbitrary gateway. The device takes
// ownership of gw and closes it on Close, but not when NewDevice fails.
func NewDevice(name string, gw Gateway, options *Options) (*Device, error) {
	if gw == nil {
		return nil, NewError("OPEN", ErrCodeInvalidParameters, "nil gateway")
	}
	if options == nil {
		options = DefaultOptions()
	}

	geo, err := gw.Geometry()
	if err != nil {
		e := WrapError("GEOMETRY", err)
		e.Device = name
		return nil, e
	}
	if geo.IsZero() {
		return nil, NewBlockError("GEOMETRY", name, 0, ErrCodeInvalidParameters, "gateway reported an empty geometry")
	}

	metrics := NewMetrics()
	var observer Observer = NewMetricsObserver(metrics)
	if options.Observer != nil {
		observer = options.Observer
	}

	dev := &Device{
		name:     name,
		gw:       gw,
		geo:      geo,
		access:   options.AccessFlag,
		metrics:  metrics,
		observer: observer,
		logger:   logging.Default().WithDevice(name),
		printf:   options.Logger,
	}

	dev.logger.Info("device opened",
		"channels", geo.NChannels(),
		"luns", geo.NLuns(),
		"planes", geo.NPlanes(),
		"blocks", geo.NBlocks(),
		"pages", geo.NPages(),
		"vblock_bytes", geo.VBlockBytes())

	if dev.printf != nil {
		dev.printf.Printf("Device opened: %s %s", name, geo)
	}

	return dev, nil
}

// Close releases the gateway. Calls after the first return nil.
func (d *Device) Close() error {
	if d == nil || !d.closed.CompareAndSwap(false, true) {
		return nil
	}

	d.metrics.Stop()

	if err := d.gw.Close(); err != nil {
		e := WrapError("CLOSE", err)
		e.Device = d.name
		return e
	}

	d.logger.Info("device closed")
	return nil
}

// IsClosed reports whether Close has been called
func (d *Device) IsClosed() bool {
	return d == nil || d.closed.Load()
}

// Name returns the device name
func (d *Device) Name() string {
	if d == nil {
		return ""
	}
	return d.name
}

// Geometry returns the device geometry
func (d *Device) Geometry() Geometry {
	return d.geo
}

// AccessFlag returns the access flag passed with every submission
func (d *Device) AccessFlag() AccessFlag {
	return d.access
}

// DeviceInfo summarises an open device
type DeviceInfo struct {
	Name        string `json:"name"`
	Channels    int    `json:"channels"`
	Luns        int    `json:"luns"`
	Planes      int    `json:"planes"`
	Blocks      int    `json:"blocks"`
	Pages       int    `json:"pages"`
	Sectors     int    `json:"sectors"`
	SectorBytes int    `json:"sector_bytes"`
	TotalBytes  int64  `json:"total_bytes"`
	VBlockBytes int    `json:"vblock_bytes"`
	VPageBytes  int    `json:"vpage_bytes"`
	AccessFlag  uint16 `json:"access_flag"`
	Closed      bool   `json:"closed"`
}

// Info returns comprehensive information about the device
func (d *Device) Info() DeviceInfo {
	if d == nil {
		return DeviceInfo{}
	}

	geo := d.geo
	return DeviceInfo{
		Name:        d.name,
		Channels:    geo.NChannels(),
		Luns:        geo.NLuns(),
		Planes:      geo.NPlanes(),
		Blocks:      geo.NBlocks(),
		Pages:       geo.NPages(),
		Sectors:     geo.NSectors(),
		SectorBytes: geo.NBytes(),
		TotalBytes:  geo.TotalBytes(),
		VBlockBytes: geo.VBlockBytes(),
		VPageBytes:  geo.VPageBytes(),
		AccessFlag:  uint16(d.access),
		Closed:      d.IsClosed(),
	}
}

// Metrics returns the current metrics for the device
func (d *Device) Metrics() *Metrics {
	if d == nil {
		return nil
	}
	return d.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of device metrics
func (d *Device) MetricsSnapshot() MetricsSnapshot {
	if d == nil || d.metrics == nil {
		return MetricsSnapshot{}
	}
	return d.metrics.Snapshot()
}

// EraseAddrs erases the blocks behind list. Every address names one plane of
// a block; page and sector are ignored by the media.
func (d *Device) EraseAddrs(list []Addr) (int, error) {
	return d.submit("ERASE", OpErase, list, nil, -1)
}

// WriteAddrs programs len(list) sectors from buf, NBytes per address
func (d *Device) WriteAddrs(list []Addr, buf []byte) (int, error) {
	if err := d.checkSectorBuffer("WRITE", list, buf); err != nil {
		return 0, err
	}
	return d.submit("WRITE", OpWrite, list, buf, -1)
}

// ReadAddrs reads len(list) sectors into buf, NBytes per address
func (d *Device) ReadAddrs(list []Addr, buf []byte) (int, error) {
	if err := d.checkSectorBuffer("READ", list, buf); err != nil {
		return 0, err
	}
	return d.submit("READ", OpRead, list, buf, -1)
}

// Mark records the administrative state of the block at addr
func (d *Device) Mark(addr Addr, state MarkState) error {
	if d.IsClosed() {
		return NewBlockError("MARK", d.Name(), addr, ErrCodeDeviceClosed, "device is closed")
	}

	err := d.gw.Mark(addr, state)
	d.observer.ObserveMark(err == nil)
	if err != nil {
		d.logger.RequestError("MARK", addr.PPA(), err)
		return wrapRequest("MARK", d.name, addr, err)
	}

	d.logger.WithBlock(addr.PPA()).Debug("block marked", "state", state.String())
	return nil
}

// reserve asks the gateway for a free block on channel ch, lun lun
func (d *Device) reserve(ch, lun uint8) (Addr, uint16, error) {
	if d.IsClosed() {
		return 0, 0, NewBlockError("BLOCK_GET", d.Name(), 0, ErrCodeDeviceClosed, "device is closed")
	}
	if int(ch) >= d.geo.NChannels() || int(lun) >= d.geo.NLuns() {
		// Refused the way the media manager refuses an unknown lun
		d.observer.ObserveReserve(0, false)
		e := NewBlockError("BLOCK_GET", d.name, 0, ErrCodeDeviceRequest,
			fmt.Sprintf("channel %d lun %d outside geometry", ch, lun))
		e.Errno = syscall.EINVAL
		e.Inner = syscall.EINVAL
		return 0, 0, e
	}

	start := time.Now()
	addr, flags, err := d.gw.BlockGet(ch, lun)
	d.observer.ObserveReserve(uint64(time.Since(start).Nanoseconds()), err == nil)
	if err != nil {
		d.logger.RequestError("BLOCK_GET", PackGeneric(GenericAddr{Channel: ch, Lun: lun}).PPA(), err)
		return 0, 0, wrapRequest("BLOCK_GET", d.name, 0, err)
	}

	d.logger.WithBlock(addr.PPA()).Debug("block reserved", "channel", ch, "lun", lun, "flags", flags)
	return addr, flags, nil
}

// release hands the block at addr back to the gateway
func (d *Device) release(addr Addr) error {
	if d.IsClosed() {
		return NewBlockError("BLOCK_PUT", d.Name(), addr, ErrCodeDeviceClosed, "device is closed")
	}

	start := time.Now()
	err := d.gw.BlockPut(addr)
	d.observer.ObserveRelease(uint64(time.Since(start).Nanoseconds()), err == nil)
	if err != nil {
		d.logger.RequestError("BLOCK_PUT", addr.PPA(), err)
		return wrapRequest("BLOCK_PUT", d.name, addr, err)
	}

	d.logger.WithBlock(addr.PPA()).Debug("block released")
	return nil
}

// submit performs one physical operation. page is reported in errors and is
// -1 when the submission is not tied to a page.
func (d *Device) submit(opName string, op Opcode, list []Addr, buf []byte, page int) (int, error) {
	var ppa Addr
	if len(list) > 0 {
		ppa = list[0]
	}

	if d.IsClosed() {
		return 0, NewBlockError(opName, d.Name(), ppa, ErrCodeDeviceClosed, "device is closed")
	}
	if len(list) == 0 || len(list) > MaxAddrsPerSubmit {
		e := NewBlockError(opName, d.name, ppa, ErrCodeInvalidParameters,
			fmt.Sprintf("address list of %d entries, want 1..%d", len(list), MaxAddrsPerSubmit))
		e.Page = page
		return 0, e
	}

	d.observer.ObserveBatch(uint32(len(list)))

	start := time.Now()
	n, err := d.gw.Submit(op, list, buf, d.access)
	latency := uint64(time.Since(start).Nanoseconds())

	switch op {
	case OpRead:
		d.observer.ObserveRead(uint64(n), latency, err == nil)
	case OpWrite:
		d.observer.ObserveWrite(uint64(n), latency, err == nil)
	case OpErase:
		d.observer.ObserveErase(latency, err == nil)
	}

	if err != nil {
		d.logger.IOError(opName, ppa.PPA(), len(list), err)
		return 0, wrapIO(opName, d.name, ppa, page, err)
	}
	return n, nil
}

func (d *Device) checkSectorBuffer(op string, list []Addr, buf []byte) error {
	if want := len(list) * d.geo.NBytes(); len(buf) != want {
		return NewError(op, ErrCodeInvalidParameters,
			fmt.Sprintf("buffer of %d bytes for %d sectors, want %d", len(buf), len(list), want))
	}
	return nil
}
