// Package sockpath chooses where the request endpoint's listening socket
// lives. The original implementation used tempnam(3), which is racy (it
// returns a name, not an open or created file, leaving a TOCTOU window
// where another process can claim it first). Resolve instead derives a
// deterministic, collision-resistant directory name and creates it
// mode-0700 up front, closer in spirit to mkdtemp(3).
package sockpath

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// socketFileName is the listening socket's file name inside the derived
// directory; sun_path has a short fixed limit, so the directory name
// (which carries the entropy) is kept short and the socket file name
// itself is constant.
const socketFileName = "remake.sock"

// Resolve picks and creates a private directory to hold the request
// endpoint's socket, rooted under base (typically os.TempDir(), or a
// directory named in .remake.yaml). The directory name is derived from
// the absolute path of the Remakefile directory and the current time, so
// concurrent remake servers in different directories (or the same
// directory at different times) don't collide, without relying on a
// racy temp-name-then-create pattern.
//
// It returns the full socket path (not yet bound); the caller is
// responsible for removing the directory on shutdown.
func Resolve(base, ruleDir string, now time.Time) (string, error) {
	if base == "" {
		base = os.TempDir()
	}
	abs, err := filepath.Abs(ruleDir)
	if err != nil {
		return "", fmt.Errorf("resolve rule directory: %w", err)
	}

	h := blake3.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d", abs, now.UnixNano(), os.Getpid())
	sum := h.Sum(nil)
	name := "rmk-" + hex.EncodeToString(sum[:8])

	dir := filepath.Join(base, name)
	if err := validateSocketFilesystem(base); err != nil {
		return "", err
	}
	if err := os.Mkdir(dir, 0o700); err != nil {
		return "", fmt.Errorf("create socket directory %q: %w", dir, err)
	}

	socket := filepath.Join(dir, socketFileName)
	if len(socket) >= 100 {
		_ = os.Remove(dir)
		return "", fmt.Errorf("socket path %q exceeds AF_UNIX sun_path length limit", socket)
	}
	return socket, nil
}

// Cleanup removes the directory containing socketPath (and the socket
// file itself, if still present).
func Cleanup(socketPath string) error {
	if socketPath == "" {
		return nil
	}
	return os.RemoveAll(filepath.Dir(socketPath))
}
