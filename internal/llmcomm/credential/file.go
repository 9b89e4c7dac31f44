package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/longkey1/llmcomm/internal/llmcomm"
	"github.com/longkey1/llmcomm/internal/util"
)

const (
	// DefaultKeyFileName is the name of the key file inside the data directory.
	DefaultKeyFileName = "key"

	keyFilePerm = 0600
	keyDirPerm  = 0700
)

// FileBackend keeps the raw key in a file only the owner can read or write.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Name implements Backend.
func (f *FileBackend) Name() string {
	return "file"
}

// Path returns the key file location.
func (f *FileBackend) Path() string {
	return f.path
}

// Available implements Backend.
func (f *FileBackend) Available() bool {
	return f.path != ""
}

// Load implements Backend.
func (f *FileBackend) Load() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", &llmcomm.PersistenceError{Op: "read", Path: f.path, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// Save writes key with mode 0600. An empty key deletes the file.
func (f *FileBackend) Save(key string) error {
	if key == "" {
		if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
			return &llmcomm.PersistenceError{Op: "remove", Path: f.path, Err: err}
		}
		return nil
	}

	if err := util.AtomicWriteFile(f.path, []byte(key), keyFilePerm, keyDirPerm); err != nil {
		return &llmcomm.PersistenceError{Op: "write", Path: f.path, Err: err}
	}
	if !isWindows() {
		// MkdirAll leaves an existing directory's mode alone.
		dir := filepath.Dir(f.path)
		if err := os.Chmod(dir, keyDirPerm); err != nil {
			return &llmcomm.PersistenceError{Op: "chmod", Path: dir, Err: err}
		}
	}

	// The rename keeps the mode of the temp file, but verify anyway: the
	// key must never be group or world accessible.
	info, err := os.Stat(f.path)
	if err != nil {
		return &llmcomm.PersistenceError{Op: "stat", Path: f.path, Err: err}
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 && !isWindows() {
		_ = os.Remove(f.path)
		return &llmcomm.PersistenceError{
			Op:   "write",
			Path: f.path,
			Err:  fmt.Errorf("key file created with insecure permissions %o", mode),
		}
	}
	return nil
}

func isWindows() bool {
	return runtime.GOOS == "windows"
}
