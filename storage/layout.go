package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dateDirLayout   = "20060102"
	fileStampLayout = "20060102150405"
	sessionPrefix   = "Session_"
)

// ErrStorageUnavailable is returned when the storage root (the USB drive) is not mounted
var ErrStorageUnavailable = errors.New("storage root unavailable")

// SessionDir describes the directory a controller run writes into
type SessionDir struct {
	Path   string
	Date   string
	Number int
}

// CheckRoot verifies the storage root exists and is a directory
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s not found", ErrStorageUnavailable, root)
		}
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrStorageUnavailable, root)
	}
	return nil
}

// OpenSessionDir creates <root>/<YYYYMMDD>/Session_<n> where n is the number of
// sessions already recorded that day. If that name is taken (a session was
// deleted by hand) n is bumped until a free name is found.
func OpenSessionDir(root string, now time.Time) (SessionDir, error) {
	if err := CheckRoot(root); err != nil {
		return SessionDir{}, err
	}

	date := now.Format(dateDirLayout)
	dateDir, err := EnsurePath(root, date)
	if err != nil {
		return SessionDir{}, fmt.Errorf("failed to create date directory: %w", err)
	}

	entries, err := os.ReadDir(dateDir)
	if err != nil {
		return SessionDir{}, fmt.Errorf("failed to list date directory: %w", err)
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() {
			n++
		}
	}

	for {
		path := filepath.Join(dateDir, fmt.Sprintf("%s%d", sessionPrefix, n))
		err := os.Mkdir(path, 0755)
		if err == nil {
			return SessionDir{Path: path, Date: date, Number: n}, nil
		}
		if !os.IsExist(err) {
			return SessionDir{}, fmt.Errorf("failed to create session directory: %w", err)
		}
		n++
	}
}

// EnsurePath creates the directory structure if it doesn't exist
func EnsurePath(basePath string, subDirs ...string) (string, error) {
	fullPath := filepath.Join(append([]string{basePath}, subDirs...)...)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		return "", err
	}
	return fullPath, nil
}

// MediaPath returns a free path named after t (YYYYMMDDHHMMSS<ext>) inside dir.
// A second file within the same second gets a _001, _002 ... suffix, which
// still sorts after the plain name.
func MediaPath(dir string, t time.Time, ext string) string {
	stamp := t.Format(fileStampLayout)
	path := filepath.Join(dir, stamp+ext)
	for k := 1; fileExists(path); k++ {
		path = filepath.Join(dir, fmt.Sprintf("%s_%03d%s", stamp, k, ext))
	}
	return path
}

// RemoteKey maps a local media path under root to an archive object key
func RemoteKey(prefix, root, localPath string) (string, error) {
	rel, err := filepath.Rel(root, localPath)
	if err != nil {
		return "", fmt.Errorf("failed to determine relative path: %w", err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside storage root %s", localPath, root)
	}
	key := filepath.ToSlash(rel)
	if prefix != "" {
		key = strings.TrimSuffix(prefix, "/") + "/" + key
	}
	return key, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
