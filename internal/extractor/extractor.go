// Package extractor materializes embedded probe binaries to a scoped
// temporary directory so Runners can exec them, mirroring the teacher's
// embed-and-serve pattern (internal/web's embedded frontend) but writing
// to disk instead of serving over HTTP.
package extractor

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/agentsight/agentsight/internal/agentsighterr"
	"github.com/agentsight/agentsight/internal/logging"
)

//go:embed all:probes
var probeFS embed.FS

const probeDir = "probes"

// Extractor owns a unique temp directory holding the extracted probe
// binaries for one composite Runner instance. Concurrent instances never
// collide because os.MkdirTemp mints a unique directory name per call.
type Extractor struct {
	dir   string
	paths map[string]string
}

// New creates a unique 0700 temp directory and writes every embedded
// probe payload into it with owner-only executable permissions.
func New() (*Extractor, error) {
	dir, err := os.MkdirTemp("", "agentsight-probes-*")
	if err != nil {
		return nil, agentsighterr.New(agentsighterr.KindBinaryExtraction, "create temp dir", err)
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		os.RemoveAll(dir)
		return nil, agentsighterr.New(agentsighterr.KindBinaryExtraction, "chmod temp dir", err)
	}

	e := &Extractor{dir: dir, paths: make(map[string]string)}

	entries, err := fs.ReadDir(probeFS, probeDir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, agentsighterr.New(agentsighterr.KindBinaryExtraction, "read embedded probes", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == ".gitkeep" {
			continue
		}
		if err := e.writeOne(entry.Name()); err != nil {
			e.Release()
			return nil, err
		}
	}

	return e, nil
}

func (e *Extractor) writeOne(name string) error {
	data, err := probeFS.ReadFile(filepath.Join(probeDir, name))
	if err != nil {
		return agentsighterr.New(agentsighterr.KindBinaryExtraction, fmt.Sprintf("read embedded %s", name), err)
	}

	dest := filepath.Join(e.dir, name)
	if err := os.WriteFile(dest, data, 0o700); err != nil {
		return agentsighterr.New(agentsighterr.KindBinaryExtraction, fmt.Sprintf("write %s", name), err)
	}
	e.paths[name] = dest
	return nil
}

// PathOf returns the filesystem path of an extracted probe by its
// embedded filename.
func (e *Extractor) PathOf(name string) (string, error) {
	path, ok := e.paths[name]
	if !ok {
		return "", agentsighterr.New(agentsighterr.KindBinaryExtraction, fmt.Sprintf("no such probe %q", name), nil)
	}
	return path, nil
}

// Release unlinks every extracted file and removes the temp directory.
// Failures are logged, never propagated — this runs on every exit path,
// including after a partial New() failure.
func (e *Extractor) Release() {
	if e == nil || e.dir == "" {
		return
	}
	if err := os.RemoveAll(e.dir); err != nil {
		logging.Global().Warn("extractor_release_failed", "dir", e.dir, "error", err.Error())
	}
}
