package scanner

import (
	"io/fs"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

// FileCollector walks a directory tree and returns the files eligible for
// scanning. Excluded directories are pruned before descending into them, so
// dependency folders are never visited.
type FileCollector struct {
	filter *PathFilter
	logger hclog.Logger
}

// NewFileCollector builds a collector over the given filter.
func NewFileCollector(filter *PathFilter, logger hclog.Logger) *FileCollector {
	return &FileCollector{filter: filter, logger: logger}
}

// Collect returns all files under root that pass the path filter, in lexical
// walk order. Unreadable subtrees are logged and skipped.
func (c *FileCollector) Collect(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			c.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path != root && c.filter.ExcludedDir(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}

		if !c.filter.ShouldExclude(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("collected files for scanning", "root", root, "count", len(files))
	return files, nil
}
