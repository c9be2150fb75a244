// Command coredb-server wires configuration, logging, the table file
// manager, the buffer pool, the table service, and the dispatcher
// together behind a TCP front end.
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"coredb/internal/config"
	"coredb/internal/dispatch"
	"coredb/internal/logging"
	"coredb/internal/netserver"
	"coredb/internal/page"
	"coredb/internal/tablefile"
	"coredb/internal/tableservice"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	files, err := tablefile.New(cfg.StorageDirectory)
	if err != nil {
		return err
	}

	writer, err := files.NewPageWriter()
	if err != nil {
		return err
	}
	pool := page.NewPool(cfg.BufferPoolMaxPages, writer)

	svc, err := tableservice.New(files, pool, logger)
	if err != nil {
		return err
	}

	d := dispatch.New(svc)
	srv := netserver.New(fmt.Sprintf(":%d", cfg.Port), d, logger)

	logger.Info("starting coredb-server",
		zap.String("storage_directory", cfg.StorageDirectory),
		zap.Int("buffer_pool_max_pages", cfg.BufferPoolMaxPages),
		zap.Int("port", cfg.Port),
	)

	return srv.Run(context.Background())
}
