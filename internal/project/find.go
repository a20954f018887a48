package project

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrProjectNotFound indicates no descriptor exists between the start
	// directory and the filesystem root
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectLoadFailed indicates the loader could not build a model
	ErrProjectLoadFailed = errors.New("project load failed")

	// ErrCacheCorrupt indicates the persisted model could not be decoded
	ErrCacheCorrupt = errors.New("project cache corrupt")

	// ErrIdentityMismatch indicates the persisted model describes another
	// root or descriptor revision
	ErrIdentityMismatch = errors.New("project identity mismatch")
)

// descriptors lists the files FindProject looks for, by priority.
var descriptors = []struct {
	name string
	kind Kind
}{
	{GradleFile, KindGradle},
	{GradleKtsFile, KindGradle},
	{MavenFile, KindMaven},
	{NativeFile, KindNative},
}

// FindProject walks upward from start and returns the first directory that
// holds a project descriptor, together with the descriptor's kind and path.
func FindProject(start string) (root string, kind Kind, descriptor string, err error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}

	for {
		for _, d := range descriptors {
			path := filepath.Join(dir, d.name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return dir, d.kind, path, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", "", fmt.Errorf("%w: searched upward from %s", ErrProjectNotFound, start)
		}
		dir = parent
	}
}

// DescriptorPath returns the descriptor of kind inside root.
func DescriptorPath(root string, kind Kind) (string, error) {
	for _, d := range descriptors {
		if d.kind != kind {
			continue
		}
		path := filepath.Join(root, d.name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no %s descriptor in %s", ErrProjectNotFound, kind, root)
}

// Identity derives the project identity from the root path and the
// descriptor contents. Any edit to the descriptor changes it.
func Identity(root, descriptor string) (string, error) {
	data, err := os.ReadFile(descriptor)
	if err != nil {
		return "", fmt.Errorf("failed to read descriptor: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(root))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// rootKey names the per-project cache directory.
func rootKey(root string) string {
	sum := sha256.Sum256([]byte(root))
	return hex.EncodeToString(sum[:])[:16]
}
