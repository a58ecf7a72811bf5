package openapi

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Source identifies where an OpenAPI document is read from.
type Source interface {
	Location() string
	read(ctx context.Context) ([]byte, error)
}

type fileSource struct {
	path string
}

// SourceFromFile returns a Source for a path on disk.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

func (s fileSource) Location() string { return s.path }

func (s fileSource) read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", s.path, err)
	}
	return data, nil
}

type fsSource struct {
	fsys fs.FS
	name string
}

// SourceFromFS returns a Source for a file inside fsys, such as an embedded
// document.
func SourceFromFS(fsys fs.FS, name string) Source {
	return fsSource{fsys: fsys, name: name}
}

func (s fsSource) Location() string { return s.name }

func (s fsSource) read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.fsys == nil {
		return nil, fmt.Errorf("openapi: no filesystem for %s", s.name)
	}
	data, err := fs.ReadFile(s.fsys, s.name)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", s.name, err)
	}
	return data, nil
}

type bytesSource struct {
	name string
	data []byte
}

// SourceFromBytes wraps an in-memory document. name is used in errors.
func SourceFromBytes(name string, data []byte) Source {
	return bytesSource{name: name, data: append([]byte(nil), data...)}
}

func (s bytesSource) Location() string { return s.name }

func (s bytesSource) read(ctx context.Context) ([]byte, error) {
	return s.data, ctx.Err()
}
