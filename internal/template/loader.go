package template

import (
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Loader provides template sources by name. Load returns an error wrapping
// ErrTemplateNotFound when it has no such template.
type Loader interface {
	Load(name string) (string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(name string) (string, error)

func (f LoaderFunc) Load(name string) (string, error) { return f(name) }

// FileSystemLoader reads templates from one or more file systems, first
// match wins.
type FileSystemLoader struct {
	fsys []fs.FS
}

// NewFileSystemLoader serves templates from the given directories.
func NewFileSystemLoader(dirs ...string) *FileSystemLoader {
	l := &FileSystemLoader{}
	for _, d := range dirs {
		l.fsys = append(l.fsys, os.DirFS(d))
	}
	return l
}

// NewFSLoader serves templates from file systems such as embed.FS.
func NewFSLoader(fsys ...fs.FS) *FileSystemLoader {
	return &FileSystemLoader{fsys: fsys}
}

func (l *FileSystemLoader) Load(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if !fs.ValidPath(clean) {
		return "", errors.Wrapf(ErrTemplateNotFound, "invalid template name %q", name)
	}
	for _, fsys := range l.fsys {
		data, err := fs.ReadFile(fsys, clean)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "read template %s", name)
		}
		return string(data), nil
	}
	return "", errors.Wrap(ErrTemplateNotFound, name)
}

// InMemoryLoader serves templates registered with Set.
type InMemoryLoader struct {
	mu        sync.RWMutex
	templates map[string]string
}

func NewInMemoryLoader(templates map[string]string) *InMemoryLoader {
	l := &InMemoryLoader{templates: map[string]string{}}
	for k, v := range templates {
		l.templates[k] = v
	}
	return l
}

func (l *InMemoryLoader) Set(name, src string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.templates[name] = src
}

func (l *InMemoryLoader) Load(name string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.templates[name]
	if !ok {
		return "", errors.Wrap(ErrTemplateNotFound, name)
	}
	return src, nil
}
