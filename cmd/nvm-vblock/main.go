// nvm-vblock drives the virtual block interface of an open-channel SSD
// from the command line.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/ehrlich-b/go-lightnvm/internal/logging"
)

func main() {
	var (
		verbose   = flag.Bool("v", false, "Verbose output")
		logFormat = flag.String("log-format", "text", "Log format (text or json)")
	)

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&geoCmd{}, "device")
	subcommands.Register(&addrCmd{}, "device")
	subcommands.Register(&getCmd{}, "block")
	subcommands.Register(&putCmd{}, "block")
	subcommands.Register(&markCmd{}, "block")
	subcommands.Register(&eraseCmd{}, "io")
	subcommands.Register(&writeCmd{}, "io")
	subcommands.Register(&readCmd{}, "io")

	flag.Parse()

	logConfig := logging.DefaultConfig()
	logConfig.Format = *logFormat
	logConfig.Sync = true
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.NewLogger(logConfig))

	os.Exit(int(subcommands.Execute(context.Background())))
}
