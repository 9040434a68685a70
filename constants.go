package lightnvm

import (
	"github.com/ehrlich-b/go-lightnvm/internal/constants"
	"github.com/ehrlich-b/go-lightnvm/internal/uapi"
)

// Re-export constants for public API
const (
	DefaultDevDir     = constants.DevDir
	DefaultSysfsRoot  = constants.DefaultSysfsRoot
	SysfsRootEnv      = constants.SysfsRootEnv
	DefaultAccessFlag = AccessFlag(constants.DefaultAccess)

	// MaxAddrsPerSubmit is the longest address list one submission may carry
	MaxAddrsPerSubmit = uapi.NVM_MAX_VLBA
)
