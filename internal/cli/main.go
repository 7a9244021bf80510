package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/sharednotes/sharednotes.go"
	"github.com/sharednotes/sharednotes.go/internal/fakestore"
	"github.com/sharednotes/sharednotes.go/pkg/connection"
	"github.com/sharednotes/sharednotes.go/pkg/logger"
	"github.com/sharednotes/sharednotes.go/pkg/models"
)

// Main parses args, runs the command they name and prints its result to stdout.
// It can be called directly from tests without building the binary.
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	return Run(ctx, cmd, config, os.Stdout)
}

// Run executes cmd and writes its result to w in config.Format.
func Run(ctx context.Context, cmd Command, config *Config, w io.Writer) error {
	logData, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logData.Close()
	log := logData.AsLogger()

	if c, ok := cmd.(*ServeCommand); ok {
		return serve(ctx, c, log)
	}

	db, manager, err := connect(ctx, config, log)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.URL, err)
	}
	defer func() {
		if err := db.Close(ctx); err != nil {
			log.Warn("failed to close connection", "error", err)
		}
	}()

	switch cmd.(type) {
	case *DefaultFolderCommand:
		folder, err := manager.CreateDefaultFolder(ctx)
		if err != nil {
			return fmt.Errorf("failed to create default folder: %w", err)
		}
		return write(w, config.Format, []sharednotes.Folder{folder}, false)
	case *FoldersCommand:
		folders, err := manager.FetchFolders(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch folders: %w", err)
		}
		return write(w, config.Format, folders, true)
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}
}

func connect(ctx context.Context, config *Config, log logger.Logger) (*sharednotes.DB, *sharednotes.Manager, error) {
	u, err := url.ParseRequestURI(config.URL)
	if err != nil {
		return nil, nil, err
	}

	conf := connection.NewConfig(u)
	conf.Timeout = config.Timeout
	conf.Logger = log
	conf.WebSocketEngine = config.Engine

	var opts []sharednotes.Option
	if config.Zone != "" {
		zone, err := models.ParseZoneID(config.Zone)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, sharednotes.WithZone(zone))
	}

	db, err := sharednotes.FromConfig(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	manager, err := sharednotes.New(ctx, db, opts...)
	if err != nil {
		_ = db.Close(ctx)
		return nil, nil, err
	}

	return db, manager, nil
}

func serve(ctx context.Context, c *ServeCommand, log logger.Logger) error {
	server := fakestore.NewServer(c.Listen, nil)
	server.SetLogger(log)

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	log.Info("serving in-memory record store", "address", server.Address())

	<-ctx.Done()

	log.Info("shutting down")
	return server.Stop()
}
