package migration

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

const modulePath = "github.com/elskow/authflow"

// getMigrationsDir resolves the migrations directory. MIGRATIONS_DIR wins so
// deployed binaries can run without the source tree.
func getMigrationsDir() (string, error) {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return filepath.Abs(dir)
	}

	root, err := findModuleRoot()
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	return filepath.Join(root, "migrations"), nil
}

// findModuleRoot walks up from the working directory to this module's go.mod.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		content, err := os.ReadFile(filepath.Join(dir, "go.mod"))
		if err == nil && modfile.ModulePath(content) == modulePath {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod for %s not found", modulePath)
		}
		dir = parent
	}
}
