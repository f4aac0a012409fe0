package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCheckLocalFilesystem_AllowsLocal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deliveries.db")
	err := checkLocalFilesystemWithDetector(path, func(string) (string, error) {
		return "ext4", nil
	})
	if err != nil {
		t.Fatalf("expected local filesystem to pass, got: %v", err)
	}
}

func TestCheckLocalFilesystem_RejectsNetworkMounts(t *testing.T) {
	t.Parallel()

	for _, fsType := range []string{"nfs", "CIFS", " smb2 "} {
		path := filepath.Join(t.TempDir(), "deliveries")
		err := checkLocalFilesystemWithDetector(path, func(string) (string, error) {
			return fsType, nil
		})
		if !errors.Is(err, ErrNetworkFilesystem) {
			t.Errorf("fs %q: err = %v, want ErrNetworkFilesystem", fsType, err)
		}
	}
}

func TestCheckLocalFilesystem_InspectsNearestExistingParent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := filepath.Join(root, "nested", "dir", "deliveries.db")

	var inspected string
	err := checkLocalFilesystemWithDetector(path, func(p string) (string, error) {
		inspected = p
		return "ext4", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inspected != root {
		t.Fatalf("inspected %q, want %q", inspected, root)
	}
}

func TestCheckLocalFilesystem_DetectorError(t *testing.T) {
	t.Parallel()

	err := checkLocalFilesystemWithDetector(t.TempDir(), func(string) (string, error) {
		return "", errors.New("boom")
	})
	if err == nil || errors.Is(err, ErrNetworkFilesystem) {
		t.Fatalf("err = %v, want detection error", err)
	}
}

func TestCheckLocalFilesystem_EmptyPath(t *testing.T) {
	t.Parallel()

	if err := CheckLocalFilesystem(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
