package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckLocalFilesystem(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "inbox.db")
	tests := []struct {
		name    string
		fsType  string
		err     error
		wantErr string
	}{
		{name: "local", fsType: "apfs"},
		{name: "linux magic", fsType: "0xef53"},
		{name: "nfs", fsType: "nfs", wantErr: `network filesystem "nfs"`},
		{name: "uppercase smb", fsType: "SMBFS", wantErr: "inbox.path"},
		{name: "unsupported platform", err: errUnsupportedPlatform},
		{name: "detector failure", err: errors.New("boom"), wantErr: "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkLocalFilesystem(dbPath, func(string) (string, error) { return tt.fsType, tt.err })
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCheckLocalFilesystemInspectsNearestParent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	var inspected string
	err := checkLocalFilesystem(filepath.Join(root, "a", "b", "inbox.db"), func(p string) (string, error) {
		inspected = p
		return "ext4", nil
	})
	require.NoError(t, err)
	assert.Equal(t, root, inspected)
}

func TestCheckLocalFilesystemEmptyPath(t *testing.T) {
	t.Parallel()
	assert.Error(t, CheckLocalFilesystem(""))
}
