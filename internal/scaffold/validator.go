package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/quill/internal/config"
)

// managedPaths are the top-level entries init owns.
var managedPaths = []string{config.DefaultConfigFile, config.DefaultSourceDir, config.DefaultExamplesDir}

// CheckExisting returns an error listing any managed paths that already exist
// under root.
func CheckExisting(root string) error {
	var existing []string
	for _, name := range managedPaths {
		info, err := os.Stat(filepath.Join(root, name))
		if err != nil {
			continue
		}
		if info.IsDir() {
			name += "/"
		}
		existing = append(existing, name)
	}

	if len(existing) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("project already initialized\n\nFound existing")
	if len(existing) == 1 {
		fmt.Fprintf(&b, ": %s\n", existing[0])
	} else {
		b.WriteString(" files:\n")
		for _, name := range existing {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	b.WriteString("\nUse 'quill init --force' to reinitialize (this will overwrite existing configuration)")

	return fmt.Errorf("%s", b.String())
}
