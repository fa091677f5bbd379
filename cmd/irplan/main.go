// Command irplan turns an IR remote into a display pointer and runs plugin
// actions when the remote is shaken.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayusman/irplan/internal/config"
	"github.com/ayusman/irplan/internal/store"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "irplan",
		Short:        "IR remote pointer and shake gestures",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		fmt.Sprintf("config file (default $%s or %s)", config.EnvPath, config.Path()))

	load := func() (config.Config, error) {
		path := configPath
		if path == "" {
			path = config.Path()
		}
		return config.Load(path)
	}

	root.AddCommand(
		newServeCmd(load),
		newImportCmd(load),
		newTrainCmd(load),
		newMapCmd(load),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type loadFunc func() (config.Config, error)

// openStore opens the database at path, creating its directory.
func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return store.New(path)
}
