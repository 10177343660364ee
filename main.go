package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/lepinkainen/vidtrain/cmd"
	"github.com/lepinkainen/vidtrain/types"
)

var Version = "dev"

type CLI struct {
	LogLevel string           `name:"log-level" default:"info" enum:"debug,info,warn,error" env:"VIDTRAIN_LOG_LEVEL" help:"Minimum level of log messages"`
	Version  kong.VersionFlag `help:"Print version and exit"`

	Train   cmd.TrainCmd   `cmd:"" help:"Train the video classifier on UCF101"`
	Index   cmd.IndexCmd   `cmd:"" help:"Build the metadata caches without training"`
	Inspect cmd.InspectCmd `cmd:"" help:"Verify a checkpoint and print its header"`
	Leakage cmd.LeakageCmd `cmd:"" help:"Find test videos that nearly duplicate training videos"`
}

// newLogger returns the stderr logger shared by all commands
func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "vidtrain",
	}), nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("vidtrain"),
		kong.Description("Train a tube-tokenizing video classifier on UCF101."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	logger, err := newLogger(cli.LogLevel)
	ctx.FatalIfErrorf(err)

	appCtx := &types.AppContext{Version: Version, Logger: logger}
	err = ctx.Run(appCtx)
	ctx.FatalIfErrorf(err)
}
