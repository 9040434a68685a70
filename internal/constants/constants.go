package constants

// Default configuration constants
const (
	// DevDir is the directory holding open-channel device nodes
	DevDir = "/dev"

	// DefaultSysfsRoot is the sysfs directory holding block device attributes
	DefaultSysfsRoot = "/sys/block"

	// SysfsRootEnv overrides DefaultSysfsRoot (useful for testing)
	SysfsRootEnv = "LIGHTNVM_SYSFS_ROOT"

	// LightnvmAttrDir is the per-device subdirectory with geometry attributes
	LightnvmAttrDir = "lightnvm"
)

// Geometry attribute names under /sys/block/<dev>/lightnvm
const (
	AttrChannels   = "num_channels"
	AttrLuns       = "num_luns"
	AttrPlanes     = "num_planes"
	AttrBlocks     = "num_blocks"
	AttrPages      = "num_pages"
	AttrSecPerPage = "sec_per_pg"
	AttrSectorSize = "hw_sector_size"
)

// Media access flags passed with every erase/write/read batch
const (
	// AccessSingle addresses one plane at a time
	AccessSingle = 0x0

	// AccessDual addresses planes in pairs
	AccessDual = 0x1

	// AccessQuad addresses planes in groups of four
	AccessQuad = 0x2

	// DefaultAccess is the access mode used when none is configured
	DefaultAccess = AccessDual
)
