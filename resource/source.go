package resource

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/devblok/torero/utility/kar"
	"github.com/gobuffalo/packd"
)

// Source resolves asset names to their contents. Names always use
// forward slashes. Implementations must be safe for concurrent use,
// loaders read from them on worker goroutines.
type Source interface {
	Open(name string) (io.ReadCloser, error)
	Exists(name string) bool
}

// ReadAll returns the whole contents of the named asset.
func ReadAll(src Source, name string) ([]byte, error) {
	r, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// Dir reads assets from a folder on disk. A relative root is looked up
// as given, then relative to the working directory and finally relative
// to the directory holding the executable.
type Dir struct {
	bases []string
}

// NewDir creates a source rooted at root.
func NewDir(root string) *Dir {
	if filepath.IsAbs(root) {
		return &Dir{bases: []string{filepath.Clean(root)}}
	}

	bases := []string{filepath.Clean(root)}
	if wd, err := os.Getwd(); err == nil {
		bases = appendUnique(bases, filepath.Join(wd, root))
	}
	if exe, err := os.Executable(); err == nil {
		bases = appendUnique(bases, filepath.Join(filepath.Dir(exe), root))
	}
	return &Dir{bases: bases}
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// Resolve returns the path on disk of the named asset.
func (d *Dir) Resolve(name string) (string, bool) {
	rel := filepath.FromSlash(strings.TrimPrefix(name, "/"))
	for _, base := range d.bases {
		p := filepath.Join(base, rel)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// ResolveFolder returns the path on disk of the named asset folder.
func (d *Dir) ResolveFolder(name string) (string, bool) {
	rel := filepath.FromSlash(strings.TrimPrefix(name, "/"))
	for _, base := range d.bases {
		p := filepath.Join(base, rel)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Open implements interface
func (d *Dir) Open(name string) (io.ReadCloser, error) {
	p, ok := d.Resolve(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (searched %s)", ErrNotFound, name, strings.Join(d.bases, ", "))
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
	}
	return f, nil
}

// Exists implements interface
func (d *Dir) Exists(name string) bool {
	_, ok := d.Resolve(name)
	return ok
}

// ArchiveSource reads assets out of a kar archive,
// optionally below a folder inside it.
type ArchiveSource struct {
	Archive *kar.Archive
	Prefix  string
}

func (a ArchiveSource) path(name string) string {
	return path.Join(a.Prefix, strings.TrimPrefix(name, "/"))
}

// Open implements interface
func (a ArchiveSource) Open(name string) (io.ReadCloser, error) {
	r, err := a.Archive.Open(a.path(name))
	if err == kar.ErrNotExist {
		return nil, fmt.Errorf("%w: %s (archive)", ErrNotFound, name)
	} else if err != nil {
		return nil, err
	}
	return ioutil.NopCloser(r), nil
}

// Exists implements interface
func (a ArchiveSource) Exists(name string) bool {
	return a.Archive.Has(a.path(name))
}

// Box is a collection of embedded files, as provided by packr.
type Box interface {
	packd.Finder
	Has(name string) bool
}

// BoxSource reads assets embedded in the binary.
type BoxSource struct {
	Box Box
}

// Open implements interface
func (b BoxSource) Open(name string) (io.ReadCloser, error) {
	if !b.Box.Has(name) {
		return nil, fmt.Errorf("%w: %s (embedded)", ErrNotFound, name)
	}
	data, err := b.Box.Find(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

// Exists implements interface
func (b BoxSource) Exists(name string) bool {
	return b.Box.Has(name)
}

// Chain looks an asset up in every source in turn.
type Chain []Source

// Open implements interface
func (c Chain) Open(name string) (io.ReadCloser, error) {
	for _, src := range c {
		if src.Exists(name) {
			return src.Open(name)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Exists implements interface
func (c Chain) Exists(name string) bool {
	for _, src := range c {
		if src.Exists(name) {
			return true
		}
	}
	return false
}
