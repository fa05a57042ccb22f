// Command assistant runs the university assistant portal: the registry of
// assistant agents and the retrieval-augmented answering API.
//
// Usage:
//
//	assistant serve --config config.yaml
//	assistant validate --config config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the portal HTTP server."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config   string `short:"c" help:"Path to config file." type:"path" default:"config.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error)."`
	LogFile  string `help:"Log file path (empty = stderr)."`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("assistant"),
		kong.Description("University assistant portal server."),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(cli.LogLevel, cli.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := ctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
