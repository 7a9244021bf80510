package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/sharednotes/sharednotes.go/pkg/connection"
)

const usage = `Usage: sharednotes [flags] <command>

Commands:
  default-folder   Create the default folder if it does not exist and print it
  folders          Print the folders sorted by name
  serve            Serve an in-memory record store

Examples:
  sharednotes -url ws://localhost:8000 folders
  sharednotes -config sharednotes.yaml -format text default-folder
  sharednotes -url ws://localhost:8000 -engine gws folders
  sharednotes -listen 127.0.0.1:8000 serve

Environment:
  SHAREDNOTES_URL       store endpoint URL
  SHAREDNOTES_TIMEOUT   RPC timeout, e.g. 5s`

// Parse parses command line arguments and returns the command to execute
// and the configuration shared by all commands.
//
// Settings come from the -config file, then the environment, then the other flags.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("sharednotes", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	var (
		configPath = flagSet.String("config", "", "YAML config file")
		url        = flagSet.String("url", DefaultURL, "Store endpoint URL (ws, wss, http or https)")
		zone       = flagSet.String("zone", "", "Zone as name:owner (default: the store's default zone)")
		timeout    = flagSet.Duration("timeout", 0, "RPC timeout (default: the transport's)")
		format     = flagSet.String("format", string(FormatJSON), "Output format: json or text")
		listen     = flagSet.String("listen", DefaultListen, "Address the serve command listens on")
		logLevel   = flagSet.String("log-level", "info", "Log level")
		logFile    = flagSet.String("log-file", "", "Log file (default: stderr)")
		engine     = flagSet.String("engine", connection.EngineGorilla, "WebSocket client: gorilla or gws")
	)

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, errors.New(usage)
		}
		return nil, nil, fmt.Errorf("%w\n\n%s", err, usage)
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, fmt.Errorf("subcommand required\n\n%s", usage)
	}

	config, err := LoadConfig(*configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := config.applyEnv(); err != nil {
		return nil, nil, err
	}

	// Only flags given explicitly override the file and the environment.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			config.URL = *url
		case "zone":
			config.Zone = *zone
		case "timeout":
			config.Timeout = *timeout
		case "format":
			config.Format = Format(*format)
		case "listen":
			config.Listen = *listen
		case "log-level":
			config.Log.Level = *logLevel
		case "log-file":
			config.Log.File = *logFile
		case "engine":
			config.Engine = *engine
		}
	})

	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	var cmd Command
	switch remainingArgs[0] {
	case "default-folder":
		cmd = &DefaultFolderCommand{}
	case "folders":
		cmd = &FoldersCommand{}
	case "serve":
		cmd = &ServeCommand{Listen: config.Listen}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: default-folder, folders, serve", remainingArgs[0])
	}

	if len(remainingArgs) > 1 {
		return nil, nil, fmt.Errorf("unexpected arguments after %s: %v", remainingArgs[0], remainingArgs[1:])
	}

	return cmd, config, nil
}

