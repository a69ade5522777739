package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/bizopsbank/feeder/internal"
)

var logger = internal.GetLogger("feeder_cmd")

func Main(args []string) error {
	cli.VersionFlag = &cli.BoolFlag{
		Name: "version", Aliases: []string{"V"},
		Usage: "print version only",
	}
	app := &cli.App{
		Name:                 "feeder",
		Usage:                "Distributed file-intake gate for report directories, coordinated over Redis.",
		Version:              internal.Version(),
		Copyright:            "Apache License 2.0",
		HideHelpCommand:      true,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			cmdFeed(),
		},
	}

	return app.Run(args)
}
