// Package loader reads TOML configuration files into generic maps.
//
// Files may pull in other files with an @include key (a string or an array
// of strings, relative to the including file). Included values have lower
// priority than the including file and are merged with DeepMerge.
package loader

import (
	"io/fs"
	"os"
)

// FileSystem is the file access the loader needs.
// Tests substitute an in-memory implementation.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// DirFS adapts an fs.FS (embed.FS, fstest.MapFS) to FileSystem.
func DirFS(fsys fs.FS) FileSystem {
	return dirFS{fsys}
}

type dirFS struct{ fsys fs.FS }

func (d dirFS) ReadFile(path string) ([]byte, error) {
	return fs.ReadFile(d.fsys, path)
}
