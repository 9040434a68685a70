package lightnvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeometryDerived(t *testing.T) {
	geo := NewGeometry(16, 8, 2, 1024, 64, 4, 4096)

	assert.Equal(t, 16, geo.NChannels())
	assert.Equal(t, 8, geo.NLuns())
	assert.Equal(t, 2, geo.NPlanes())
	assert.Equal(t, 1024, geo.NBlocks())
	assert.Equal(t, 64, geo.NPages())
	assert.Equal(t, 4, geo.NSectors())
	assert.Equal(t, 4096, geo.NBytes())

	assert.Equal(t, 2*4*4096, geo.VPageBytes())
	assert.Equal(t, 64*2*4*4096, geo.VBlockBytes())
	assert.Equal(t, int64(16*8*2*1024)*int64(64*4*4096), geo.TotalBytes())
}

func TestGeometrySizes(t *testing.T) {
	// pages=64, planes=4, sectors=2, bytes=4096
	geo := NewGeometry(1, 1, 4, 1, 64, 2, 4096)

	assert.Equal(t, 32768, geo.VPageBytes())
	assert.Equal(t, 2097152, geo.VBlockBytes())
}

func TestGeometryBuffers(t *testing.T) {
	geo := NewGeometry(1, 1, 2, 4, 8, 4, 512)

	assert.Len(t, geo.NewVPageBuffer(), geo.VPageBytes())
	assert.Len(t, geo.NewVBlockBuffer(), geo.VBlockBytes())
}

func TestGeometryZero(t *testing.T) {
	var geo Geometry
	assert.True(t, geo.IsZero())
	assert.False(t, NewGeometry(1, 1, 1, 1, 1, 1, 1).IsZero())
}

func TestGeometryString(t *testing.T) {
	geo := NewGeometry(1, 1, 4, 1, 64, 2, 4096)

	s := geo.String()
	assert.Contains(t, s, "nplanes(4)")
	assert.Contains(t, s, "vblock_nbytes(2.0 MiB)")
	assert.Contains(t, s, "vpage_nbytes(32 KiB)")
}

func TestFillBuffer(t *testing.T) {
	buf := make([]byte, 30)
	FillBuffer(buf)

	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZABCD", string(buf))
}
