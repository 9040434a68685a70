package ctrl

import (
	"os"

	"github.com/ehrlich-b/go-lightnvm/internal/constants"
)

// Config locates the device node and its sysfs attributes
type Config struct {
	DevDir    string
	SysfsRoot string
}

// DefaultConfig returns the standard locations, honouring LIGHTNVM_SYSFS_ROOT
func DefaultConfig() Config {
	config := Config{
		DevDir:    constants.DevDir,
		SysfsRoot: constants.DefaultSysfsRoot,
	}
	if v := os.Getenv(constants.SysfsRootEnv); v != "" {
		config.SysfsRoot = v
	}
	return config
}

// Geometry is the raw device shape as reported by sysfs
type Geometry struct {
	NChannels int
	NLuns     int
	NPlanes   int
	NBlocks   int
	NPages    int
	NSectors  int
	NBytes    int
}
