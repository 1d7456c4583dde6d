package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/store"
)

const configFileName = "tally.yaml"

// project bundles what every data-touching command needs.
type project struct {
	Root   string
	Config *config.Config
	Store  *store.Service
}

// openProject loads the config and ledger store rooted at dir.
func openProject(dir string) (*project, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfgPath := filepath.Join(root, configFileName)
	if _, err := os.Stat(cfgPath); err != nil {
		return nil, fmt.Errorf("%s not found in %s (run `tally init` first)", configFileName, root)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(root)
	if err != nil {
		return nil, err
	}
	return &project{Root: root, Config: cfg, Store: s}, nil
}
