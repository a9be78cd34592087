package hostfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var ErrInvalidPath = errors.New("invalid host path")

var (
	rootMu sync.RWMutex
	root   = "/"
)

var globalMu sync.Mutex
var fileMu = map[string]*sync.Mutex{}

// SetRoot changes the directory host paths are resolved against.
func SetRoot(dir string) {
	rootMu.Lock()
	defer rootMu.Unlock()
	if strings.TrimSpace(dir) == "" {
		dir = "/"
	}
	root = filepath.Clean(dir)
}

// Root returns the current host root.
func Root() string {
	rootMu.RLock()
	defer rootMu.RUnlock()
	return root
}

// Path joins the host root with a relative path (no leading slash).
// Example: with root /host, Path("etc/shadow") -> /host/etc/shadow
func Path(rel string) (string, error) {
	rel = strings.TrimPrefix(rel, "/")
	clean := filepath.Clean(rel)
	if clean == "." || clean == "" {
		return "", ErrInvalidPath
	}
	if strings.HasPrefix(clean, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(Root(), clean), nil
}

func muFor(path string) *sync.Mutex {
	globalMu.Lock()
	defer globalMu.Unlock()
	if m := fileMu[path]; m != nil {
		return m
	}
	m := &sync.Mutex{}
	fileMu[path] = m
	return m
}

// ReadFile reads path while holding a per-path lock.
func ReadFile(path string) ([]byte, error) {
	m := muFor(path)
	m.Lock()
	defer m.Unlock()
	return os.ReadFile(path)
}
