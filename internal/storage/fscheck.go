package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errUnsupportedPlatform = errors.New("filesystem detection is unsupported on this platform")

// remoteFilesystems lists filesystems where SQLite's WAL locking is unreliable.
var remoteFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// CheckLocalFilesystem refuses inbox paths that live on a network share.
// Platforms without filesystem detection pass.
func CheckLocalFilesystem(path string) error {
	return checkLocalFilesystem(path, filesystemType)
}

func checkLocalFilesystem(path string, detect func(string) (string, error)) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}

	existing, err := nearestExisting(path)
	if err != nil {
		return fmt.Errorf("resolve inbox path %q: %w", path, err)
	}

	fsType, err := detect(existing)
	if errors.Is(err, errUnsupportedPlatform) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", existing, err)
	}

	if isRemote(fsType) {
		return fmt.Errorf("inbox path %q is on network filesystem %q; SQLite needs local disk, set inbox.path to a local file", path, fsType)
	}
	return nil
}

// nearestExisting walks up from path to the first component that exists,
// so a not-yet-created inbox is checked against its future parent.
func nearestExisting(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	for candidate := abs; ; {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", fmt.Errorf("no existing parent for %q", abs)
		}
		candidate = parent
	}
}

func isRemote(fsType string) bool {
	_, found := remoteFilesystems[strings.ToLower(strings.TrimSpace(fsType))]
	return found
}
