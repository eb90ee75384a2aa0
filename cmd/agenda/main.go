package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/cli/commands"
)

// Version will be set during build with ldflags
var Version = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "agenda",
		Usage:   "Plan activities on a calendar",
		Version: Version,
		Flags:   commands.GlobalFlags(),
		Commands: []*cli.Command{
			// Core commands
			commands.NewSetupCommand(),
			commands.NewTagCommand(),
			commands.NewActivityCommand(),
			commands.NewEventCommand(),

			// Servers
			commands.NewServeCommand(),
			commands.NewMcpCommand(Version),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
