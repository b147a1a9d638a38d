package convert

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/valet-cli/valet/internal/config"
)

// Available reports whether a command is usable: either an executable file
// in the managed local-tool directory, or findable on PATH. The filesystem
// is re-checked on every call because installs can happen between calls
// within the same session.
func Available(cfg config.Config, cmd string) bool {
	local := filepath.Join(cfg.BinDir(), cmd)
	if info, err := os.Stat(local); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
		return true
	}
	_, err := exec.LookPath(cmd)
	return err == nil
}
