// Package config parses the process's CLI/config surface
// (SPEC_FULL.md §6): the storage directory, buffer pool capacity, and
// listen port.
package config

import (
	"github.com/spf13/pflag"
)

// Config holds the resolved runtime configuration.
type Config struct {
	StorageDirectory   string
	BufferPoolMaxPages int
	Port               int
	Debug              bool
}

// Parse parses args (typically os.Args[1:]) into a Config, applying
// defaults for any flag the caller omits.
func Parse(args []string) (Config, error) {
	fs := pflag.NewFlagSet("coredb-server", pflag.ContinueOnError)

	storageDir := fs.String("storage-directory", "./data", "directory holding table files")
	maxPages := fs.Int("buffer-pool-max-pages", 1024, "maximum number of pages held in the buffer pool")
	port := fs.Int("port", 5432, "TCP port to listen on")
	debug := fs.Bool("debug", false, "enable debug-level logging")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Config{
		StorageDirectory:   *storageDir,
		BufferPoolMaxPages: *maxPages,
		Port:               *port,
		Debug:              *debug,
	}, nil
}
