package sockpath

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSocketFilesystemAllowsLocalFS(t *testing.T) {
	dir := t.TempDir()
	err := validateSocketFilesystemWithDetector(dir, func(string) (string, error) {
		return "apfs", nil
	})
	require.NoError(t, err)
}

func TestValidateSocketFilesystemRejectsNetworkFS(t *testing.T) {
	dir := t.TempDir()
	err := validateSocketFilesystemWithDetector(dir, func(string) (string, error) {
		return "nfs", nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nfs")
}

func TestValidateSocketFilesystemUsesNearestExistingPath(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")

	var inspected string
	err := validateSocketFilesystemWithDetector(nested, func(p string) (string, error) {
		inspected = p
		return "apfs", nil
	})
	require.NoError(t, err)
	require.Equal(t, root, inspected)
}

func TestIsNetworkFilesystem(t *testing.T) {
	require.True(t, isNetworkFilesystem("NFS"))
	require.True(t, isNetworkFilesystem("smbfs"))
	require.False(t, isNetworkFilesystem("ext4"))
	require.False(t, isNetworkFilesystem("0x6969"))
}
