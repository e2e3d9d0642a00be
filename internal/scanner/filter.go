// Package scanner implements file discovery, rule-based pattern matching and
// model-assisted analysis of source trees.
package scanner

import (
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/language"
)

// binaryMIMEPrefixes mark extension-derived MIME types that are never source
// code.
var binaryMIMEPrefixes = []string{
	"image/", "audio/", "video/",
	"application/octet-stream", "application/zip", "application/x-rar",
	"application/pdf", "application/msword", "application/vnd.ms-",
}

// PathFilter decides whether a path takes part in a scan. It is a pure
// predicate over filesystem metadata and a small content probe.
type PathFilter struct {
	excludedDirs map[string]struct{}
	excludedExts []string
	maxFileBytes int64
	logger       hclog.Logger
}

// NewPathFilter builds a filter from the scan configuration.
func NewPathFilter(cfg config.Scan, logger hclog.Logger) *PathFilter {
	dirs := make(map[string]struct{}, len(cfg.ExcludedDirs))
	for _, dir := range cfg.ExcludedDirs {
		dirs[dir] = struct{}{}
	}
	exts := make([]string, len(cfg.ExcludedFiles))
	for i, ext := range cfg.ExcludedFiles {
		exts[i] = strings.ToLower(ext)
	}
	return &PathFilter{
		excludedDirs: dirs,
		excludedExts: exts,
		maxFileBytes: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		logger:       logger,
	}
}

// ExcludedDir reports whether a directory name is on the exclusion list.
func (f *PathFilter) ExcludedDir(name string) bool {
	_, ok := f.excludedDirs[name]
	return ok
}

// ShouldExclude reports whether a path must be skipped: an excluded directory
// anywhere in the path, an excluded suffix, an oversized regular file, or
// binary content.
func (f *PathFilter) ShouldExclude(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if _, ok := f.excludedDirs[part]; ok {
			return true
		}
	}

	lower := strings.ToLower(path)
	for _, ext := range f.excludedExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	if info.Size() > f.maxFileBytes {
		f.logger.Debug("skipping oversized file", "path", path, "size_bytes", info.Size())
		return true
	}

	if f.isBinaryFile(path) {
		f.logger.Debug("skipping binary file", "path", path)
		return true
	}

	return false
}

// isBinaryFile classifies a file as binary by its extension-derived MIME type
// first and by probing the first kilobyte second. Unreadable files count as
// binary.
func (f *PathFilter) isBinaryFile(path string) bool {
	if mimeType := mime.TypeByExtension(filepath.Ext(path)); mimeType != "" {
		for _, prefix := range binaryMIMEPrefixes {
			if strings.HasPrefix(mimeType, prefix) {
				return true
			}
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return true
	}
	defer file.Close()

	chunk := make([]byte, 1024)
	n, err := file.Read(chunk)
	if err != nil && err != io.EOF {
		return true
	}
	chunk = chunk[:n]
	if len(chunk) == 0 {
		return false
	}

	if language.IsBinary(chunk) {
		return true
	}

	// The probe may end mid-rune, so allow up to three trailing bytes of an
	// incomplete UTF-8 sequence before declaring the content non-text.
	for i := 0; i <= utf8.UTFMax-1 && len(chunk) > 0; i++ {
		if utf8.Valid(chunk) {
			return false
		}
		chunk = chunk[:len(chunk)-1]
	}
	return true
}
