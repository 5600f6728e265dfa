package converter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSystem is the storage the pipeline reads worlds from and writes them to.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
	// ReadDir lists dir sorted by file name.
	ReadDir(dir string) ([]fs.DirEntry, error)
	MkdirAll(dir string) error
	// CheckWritable fails when no file can be created in dir.
	CheckWritable(dir string) error
	// WriteFile replaces path with data such that readers never observe a
	// partially written file.
	WriteFile(path string, data []byte) error
}

// OSFileSystem is the FileSystem backed by the local disk.
type OSFileSystem struct{}

var _ FileSystem = OSFileSystem{}

func (OSFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFileSystem) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

func (OSFileSystem) ReadDir(dir string) ([]fs.DirEntry, error) { return os.ReadDir(dir) }

func (OSFileSystem) MkdirAll(dir string) error { return os.MkdirAll(dir, 0755) }

func (OSFileSystem) CheckWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".worldconv-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// WriteFile writes a temporary file beside path and renames it into place.
func (OSFileSystem) WriteFile(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".worldconv-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing %s: %w", tmp, err)
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
