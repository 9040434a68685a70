package lightnvm

import (
	"github.com/ehrlich-b/go-lightnvm/internal/ctrl"
)

// kernelGateway drives the lightnvm media manager through the device node
type kernelGateway struct {
	c *ctrl.Controller
}

func (k *kernelGateway) Geometry() (Geometry, error) {
	g, err := k.c.Geometry()
	if err != nil {
		return Geometry{}, err
	}
	return convertFromCtrlGeometry(g), nil
}

func (k *kernelGateway) BlockGet(channel, lun uint8) (Addr, uint16, error) {
	hint := PackGeneric(GenericAddr{Channel: channel, Lun: lun})

	ppa, flags, err := k.c.BlockGet(hint.PPA())
	if err != nil {
		return 0, 0, err
	}
	return Addr(ppa), flags, nil
}

func (k *kernelGateway) BlockPut(addr Addr) error {
	return k.c.BlockPut(addr.PPA())
}

func (k *kernelGateway) Submit(op Opcode, list []Addr, buf []byte, flags AccessFlag) (int, error) {
	return k.c.Submit(uint16(op), uint16(flags), convertToPPAs(list), buf)
}

func (k *kernelGateway) Mark(addr Addr, state MarkState) error {
	return k.c.Mark(addr.PPA(), uint16(state))
}

func (k *kernelGateway) Close() error {
	return k.c.Close()
}

// convertFromCtrlGeometry converts the raw sysfs shape into a Geometry
func convertFromCtrlGeometry(g ctrl.Geometry) Geometry {
	return NewGeometry(g.NChannels, g.NLuns, g.NPlanes, g.NBlocks, g.NPages, g.NSectors, g.NBytes)
}

// convertToPPAs flattens an address list into the wire representation
func convertToPPAs(list []Addr) []uint64 {
	ppas := make([]uint64, len(list))
	for i, a := range list {
		ppas[i] = a.PPA()
	}
	return ppas
}

var _ Gateway = (*kernelGateway)(nil)
