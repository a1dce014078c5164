package sockpath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// networkFilesystems lists filesystem types known to not support AF_UNIX
// sockets reliably (or at all): bind(2) on these either fails outright or
// silently behaves like a regular file, breaking the request endpoint in
// confusing ways far from where the socket path was chosen.
var networkFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// validateSocketFilesystem ensures dir is on a filesystem that supports
// AF_UNIX sockets.
func validateSocketFilesystem(dir string) error {
	return validateSocketFilesystemWithDetector(dir, detectFilesystemType)
}

func validateSocketFilesystemWithDetector(dir string, detector func(string) (string, error)) error {
	if dir == "" {
		return fmt.Errorf("socket directory is empty")
	}

	inspectPath, err := nearestExistingPath(dir)
	if err != nil {
		return fmt.Errorf("resolve socket directory %q: %w", dir, err)
	}

	fsType, err := detector(inspectPath)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", inspectPath, err)
	}

	if isNetworkFilesystem(fsType) {
		return fmt.Errorf(
			"socket directory %q is on network filesystem %q, which does not reliably support AF_UNIX sockets; choose a local directory (e.g. via .remake.yaml socket_dir)",
			dir,
			fsType,
		)
	}

	return nil
}

func nearestExistingPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	candidate := absPath
	for {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}

		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", fmt.Errorf("no existing parent for %q", absPath)
		}
		candidate = parent
	}
}

func isNetworkFilesystem(fsType string) bool {
	normalized := strings.TrimSpace(strings.ToLower(fsType))
	_, found := networkFilesystems[normalized]
	return found
}
