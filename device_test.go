package lightnvm

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGeometry() Geometry {
	// 2 channels, 2 luns, 2 planes, 16 blocks, 10 pages, 4 sectors of 512 bytes
	return NewGeometry(2, 2, 2, 16, 10, 4, 512)
}

func newMockDevice(t *testing.T) (*Device, *MockGateway) {
	t.Helper()

	gw := NewMockGateway(testGeometry())
	dev, err := NewDevice("mock0", gw, nil)
	require.NoError(t, err)
	t.Cleanup(func() { dev.Close() })

	return dev, gw
}

type recordingLogger struct {
	lines []string
}

func (l *recordingLogger) Printf(format string, args ...interface{}) {
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func TestNewDevice(t *testing.T) {
	logger := &recordingLogger{}
	gw := NewMockGateway(testGeometry())

	dev, err := NewDevice("mock0", gw, &Options{Logger: logger, AccessFlag: AccessQuad})
	require.NoError(t, err)
	defer dev.Close()

	assert.Equal(t, "mock0", dev.Name())
	assert.Equal(t, testGeometry(), dev.Geometry())
	assert.Equal(t, AccessQuad, dev.AccessFlag())
	assert.False(t, dev.IsClosed())

	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "mock0")
}

func TestNewDeviceDefaults(t *testing.T) {
	dev, _ := newMockDevice(t)
	assert.Equal(t, AccessDual, dev.AccessFlag())
}

func TestNewDeviceErrors(t *testing.T) {
	_, err := NewDevice("mock0", nil, nil)
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))

	gw := NewMockGateway(testGeometry())
	gw.SetGeometryError(syscall.ENOENT)
	_, err = NewDevice("mock0", gw, nil)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDeviceNotFound))
	assert.ErrorIs(t, err, syscall.ENOENT)

	_, err = NewDevice("mock0", NewMockGateway(Geometry{}), nil)
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("", nil)
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))

	opts := DefaultOptions()
	opts.DevDir = t.TempDir()
	opts.SysfsRoot = t.TempDir()

	_, err = Open("nvme9n9", opts)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDeviceNotFound), "got %v", err)
	assert.ErrorIs(t, err, syscall.ENOENT)
}

func TestDeviceClose(t *testing.T) {
	gw := NewMockGateway(testGeometry())
	dev, err := NewDevice("mock0", gw, nil)
	require.NoError(t, err)

	require.NoError(t, dev.Close())
	assert.True(t, gw.IsClosed())
	assert.True(t, dev.IsClosed())

	// Later calls are no-ops
	require.NoError(t, dev.Close())
	assert.Equal(t, 1, gw.CallCounts()["close"])

	_, err = dev.EraseAddrs([]Addr{0})
	assert.True(t, IsCode(err, ErrCodeDeviceClosed))
	assert.Equal(t, 0, gw.CallCounts()["submit"])

	assert.True(t, dev.Info().Closed)
}

func TestDeviceCloseError(t *testing.T) {
	gw := NewMockGateway(testGeometry())
	gw.SetCloseError(syscall.EIO)

	dev, err := NewDevice("mock0", gw, nil)
	require.NoError(t, err)

	err = dev.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EIO)
}

func TestDeviceInfo(t *testing.T) {
	dev, _ := newMockDevice(t)

	info := dev.Info()
	want := DeviceInfo{
		Name:        "mock0",
		Channels:    2,
		Luns:        2,
		Planes:      2,
		Blocks:      16,
		Pages:       10,
		Sectors:     4,
		SectorBytes: 512,
		TotalBytes:  2 * 2 * 2 * 16 * 10 * 4 * 512,
		VBlockBytes: 10 * 2 * 4 * 512,
		VPageBytes:  2 * 4 * 512,
		AccessFlag:  uint16(AccessDual),
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Info mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceAddrIO(t *testing.T) {
	dev, gw := newMockDevice(t)

	list := []Addr{
		PackGeneric(GenericAddr{Block: 1, Sector: 0}),
		PackGeneric(GenericAddr{Block: 1, Sector: 1}),
	}

	n, err := dev.WriteAddrs(list, make([]byte, 2*512))
	require.NoError(t, err)
	assert.Equal(t, 1024, n)

	n, err = dev.ReadAddrs(list, make([]byte, 2*512))
	require.NoError(t, err)
	assert.Equal(t, 1024, n)

	_, err = dev.EraseAddrs(list[:1])
	require.NoError(t, err)

	subs := gw.Submissions()
	require.Len(t, subs, 3)
	assert.Equal(t, OpWrite, subs[0].Op)
	assert.Equal(t, OpRead, subs[1].Op)
	assert.Equal(t, OpErase, subs[2].Op)
	for _, s := range subs {
		assert.Equal(t, AccessDual, s.Flags)
	}
	if diff := cmp.Diff(list, subs[0].List); diff != "" {
		t.Errorf("submitted list mismatch (-want +got):\n%s", diff)
	}
}

func TestDeviceAddrIOValidation(t *testing.T) {
	dev, gw := newMockDevice(t)

	list := []Addr{0, 1}

	_, err := dev.WriteAddrs(list, make([]byte, 512))
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))

	_, err = dev.ReadAddrs(list, make([]byte, 3*512))
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))

	_, err = dev.EraseAddrs(nil)
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))

	_, err = dev.EraseAddrs(make([]Addr, MaxAddrsPerSubmit+1))
	assert.True(t, IsCode(err, ErrCodeInvalidParameters))

	assert.Equal(t, 0, gw.CallCounts()["submit"])
}

func TestDeviceSubmitFailure(t *testing.T) {
	dev, gw := newMockDevice(t)
	gw.SetSubmitFault(func(int, Opcode, []Addr) error { return syscall.EIO })

	_, err := dev.ReadAddrs([]Addr{0}, make([]byte, 512))
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeIO))
	assert.ErrorIs(t, err, syscall.EIO)

	snap := dev.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.ReadOps)
	assert.Equal(t, uint64(1), snap.ReadErrors)
}

func TestDeviceMark(t *testing.T) {
	dev, gw := newMockDevice(t)

	addr := PackGeneric(GenericAddr{Block: 3, Lun: 1})
	require.NoError(t, dev.Mark(addr, MarkGrownBad))

	state, ok := gw.MarkOf(addr)
	require.True(t, ok)
	assert.Equal(t, MarkGrownBad, state)

	gw.SetMarkError(syscall.EINVAL)
	err := dev.Mark(addr, MarkFree)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeDeviceRequest))
	assert.ErrorIs(t, err, syscall.EINVAL)

	snap := dev.MetricsSnapshot()
	assert.Equal(t, uint64(2), snap.MarkOps)
	assert.Equal(t, uint64(1), snap.MarkErrors)
}

type countingObserver struct {
	NoOpObserver
	writes  int
	batches []uint32
}

func (o *countingObserver) ObserveWrite(uint64, uint64, bool) { o.writes++ }
func (o *countingObserver) ObserveBatch(n uint32)             { o.batches = append(o.batches, n) }

func TestDeviceCustomObserver(t *testing.T) {
	obs := &countingObserver{}
	dev, err := NewDevice("mock0", NewMockGateway(testGeometry()), &Options{Observer: obs, AccessFlag: AccessDual})
	require.NoError(t, err)
	defer dev.Close()

	_, err = dev.WriteAddrs([]Addr{0, 1, 2}, make([]byte, 3*512))
	require.NoError(t, err)

	assert.Equal(t, 1, obs.writes)
	assert.Equal(t, []uint32{3}, obs.batches)

	// A custom observer replaces the built-in metrics
	assert.Equal(t, uint64(0), dev.MetricsSnapshot().WriteOps)
}

func TestNilDevice(t *testing.T) {
	var dev *Device

	assert.True(t, dev.IsClosed())
	assert.NoError(t, dev.Close())
	assert.Nil(t, dev.Metrics())
	assert.Equal(t, MetricsSnapshot{}, dev.MetricsSnapshot())
	assert.Equal(t, DeviceInfo{}, dev.Info())
	assert.Equal(t, "", dev.Name())

	// Requests on a nil device fail instead of panicking
	assert.True(t, IsCode(dev.Mark(0, MarkBad), ErrCodeDeviceClosed))
	assert.True(t, IsCode(dev.release(0), ErrCodeDeviceClosed))
	_, _, err := dev.reserve(0, 0)
	assert.True(t, IsCode(err, ErrCodeDeviceClosed))
	_, err = dev.EraseAddrs([]Addr{0})
	assert.True(t, IsCode(err, ErrCodeDeviceClosed))
}
