package module

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Loader is the host hook the module graph calls back into for every
// unresolved specifier (§6 "load_imported_module"). Resolve turns a
// relative or bare specifier into the canonical form used as the
// graph's map key; Load fetches the source text for an already-
// resolved specifier.
type Loader interface {
	Resolve(referrer *Module, specifier string) (string, error)
	Load(ctx context.Context, specifier string) (string, error)
}

// SimpleModuleLoader resolves specifiers against a root directory on
// disk (§6 "SimpleModuleLoader::new(root)"), the host loader every
// other example in the pack's module systems ships as a reference
// implementation for embedders who don't need a custom resolution
// scheme (bundler import maps, virtual filesystems, network fetch).
type SimpleModuleLoader struct {
	Root string
}

// NewSimpleModuleLoader builds a loader rooted at root; relative
// specifiers from the entry module resolve against root, and relative
// specifiers from any other module resolve against that module's own
// directory.
func NewSimpleModuleLoader(root string) *SimpleModuleLoader {
	return &SimpleModuleLoader{Root: root}
}

func (l *SimpleModuleLoader) Resolve(referrer *Module, specifier string) (string, error) {
	dir := l.Root
	if referrer != nil {
		dir = filepath.Dir(referrer.Specifier)
	}
	if filepath.IsAbs(specifier) {
		return filepath.Clean(specifier), nil
	}
	return filepath.Clean(filepath.Join(dir, specifier)), nil
}

func (l *SimpleModuleLoader) Load(ctx context.Context, specifier string) (string, error) {
	data, err := os.ReadFile(specifier)
	if err != nil {
		return "", errors.Wrapf(err, "loading module %q", specifier)
	}
	return string(data), nil
}
