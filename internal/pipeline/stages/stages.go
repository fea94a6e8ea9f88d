// Package stages registers the scrape, generate and load stages with the
// pipeline registry. Import it for its side effects.
package stages

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bartek5186/catalog2dw/internal/pipeline"
)

var ErrNoSnapshot = errors.New("stages: no product snapshot found")

func init() {
	pipeline.Register("scrape", newScrape)
	pipeline.Register("generate", newGenerate)
	pipeline.Register("load", newLoad)
}

// latestSnapshot picks the most recently modified <prefix>_*.csv in dir.
// Intermediate snapshots live in dir/tmp and are never matched.
func latestSnapshot(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.csv"))
	if err != nil {
		return "", err
	}
	var (
		best    string
		bestMod int64
	)
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		if mod := fi.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = m, mod
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w in %s", ErrNoSnapshot, dir)
	}
	return best, nil
}

// salesFiles lists every day file below dir in path order, which is date order
// for the YYYY/MM/DD layout.
func salesFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".csv") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(out)
	return out, nil
}

func productsPath(ev *pipeline.Event, env pipeline.Env) (string, error) {
	if ev.ProductsTarget != "" {
		return ev.ProductsTarget, nil
	}
	p, err := latestSnapshot(env.Cfg.ProductsDir(), env.Cfg.Scraper.FilePrefix)
	if err != nil {
		return "", err
	}
	ev.ProductsTarget = p
	return p, nil
}
