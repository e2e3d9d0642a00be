package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/internal/provider"
	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/language"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// ProgressFunc receives a human-readable message and a completion percentage
// in [0,100]. Percent is monotonically non-decreasing within one scan.
type ProgressFunc func(message string, percent int)

// Scanner orchestrates scans: file collection, bounded-concurrency analysis
// and result aggregation. The rule source is read-only for the lifetime of a
// scan.
type Scanner struct {
	cfg       *config.Config
	adapter   provider.Adapter
	filter    *PathFilter
	collector *FileCollector
	engine    *PatternMatchEngine
	analyzer  *FileAnalyzer
	logger    hclog.Logger
}

// New builds a scanner over an analysis adapter and a rule source.
func New(cfg *config.Config, adapter provider.Adapter, rules RuleSource, logger hclog.Logger) *Scanner {
	log := logger.Named("scanner")
	filter := NewPathFilter(cfg.Scan, log)
	engine := NewPatternMatchEngine(rules, log)
	return &Scanner{
		cfg:       cfg,
		adapter:   adapter,
		filter:    filter,
		collector: NewFileCollector(filter, log),
		engine:    engine,
		analyzer:  NewFileAnalyzer(adapter, engine, cfg.Scan.Timeout, log),
		logger:    log,
	}
}

// ScanFile scans a single file. Files rejected by the path filter yield an
// empty result; read failures are captured in the result's stats instead of
// failing the call.
func (s *Scanner) ScanFile(ctx context.Context, path string) (*types.ScanResult, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a scannable file: %s", path)
	}

	result := types.NewScanResult("file_"+uuid.New().String(), path, types.ScanTypeFile)

	if s.filter.ShouldExclude(path) {
		s.logger.Info("file is excluded from scanning", "path", path)
		return result, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error("failed to read file", "path", path, "error", err)
		result.Stats.Error = err.Error()
		return result, nil
	}

	content := strings.ToValidUTF8(string(data), "�")
	lang := language.DetectFile(path, data)

	result.Issues = s.analyzer.analyzeContent(ctx, path, lang, content)
	result.Stats = types.ScanStats{
		TotalFiles:     1,
		TotalLines:     CountLines(path, data),
		Languages:      map[string]int{lang: 1},
		FileExtensions: map[string]int{strings.ToLower(filepath.Ext(path)): 1},
	}

	result.ProjectInfo = s.generateFileInfo(ctx, path, lang, content, result.Stats)
	result.ProjectInfo["file_info"] = ExtractFileInfo(lang, content)

	return result, nil
}

// ScanDirectory walks a directory and analyzes every eligible file under
// bounded concurrency. Failures along the way are captured in stats.error;
// the returned result is always usable. Cancellation is cooperative: no new
// work is dispatched and no further progress events fire once the context is
// done, but in-flight workers finish.
func (s *Scanner) ScanDirectory(ctx context.Context, dirPath string, concurrency int, onProgress ProgressFunc) (*types.ScanResult, error) {
	info, err := os.Stat(dirPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dirPath)
	}

	if concurrency <= 0 {
		concurrency = s.cfg.Scan.Jobs
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	result := types.NewScanResult("dir_"+uuid.New().String(), dirPath, types.ScanTypeDirectory)

	progress := func(message string, percent int) {
		if onProgress != nil && ctx.Err() == nil {
			onProgress(message, percent)
		}
	}

	progress("collecting files", 5)
	files, err := s.collector.Collect(dirPath)
	if err != nil {
		s.logger.Error("file collection failed", "path", dirPath, "error", err)
		result.Stats.Error = err.Error()
		progress("file collection failed: "+err.Error(), 100)
		return result, nil
	}

	s.logger.Info("found files to scan", "count", len(files))
	progress(fmt.Sprintf("found %d files to scan", len(files)), 10)

	if len(files) == 0 {
		s.logger.Warn("no scannable files found", "path", dirPath)
		result.Stats.Error = "no scannable files found"
		progress("no scannable files found", 100)
		return result, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		guard     = make(chan struct{}, concurrency)
		completed int
	)
	total := len(files)
	totalLines := 0
	languages := make(map[string]int)
	extensions := make(map[string]int)

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		guard <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-guard }()

			issues, lang, lines, err := s.scanOne(ctx, path)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				s.logger.Warn("skipping file", "path", path, "error", err)
			} else {
				result.Issues = append(result.Issues, issues...)
				totalLines += lines
				languages[lang]++
				extensions[strings.ToLower(filepath.Ext(path))]++
			}

			completed++
			if onProgress != nil && ctx.Err() == nil {
				percent := 10 + int(70.0*float64(completed)/float64(total))
				onProgress(fmt.Sprintf("scanning (%d/%d): %s", completed, total, filepath.Base(path)), percent)
			}
		}(file)
	}
	wg.Wait()

	progress("generating project statistics", 85)
	result.Stats = types.ScanStats{
		TotalFiles:     total,
		TotalLines:     totalLines,
		Languages:      languages,
		FileExtensions: extensions,
	}

	if err := ctx.Err(); err != nil {
		s.logger.Warn("scan cancelled", "path", dirPath, "completed", completed, "total", total)
		result.Stats.Error = "scan cancelled: " + err.Error()
		return result, nil
	}

	progress("analyzing project structure", 90)
	result.ProjectInfo = s.generateProjectInfo(ctx, dirPath, result.Stats)

	progress("scan complete, generating report", 95)
	return result, nil
}

// scanOne analyzes one already-collected file. The error return covers read
// failures only; analysis failures surface as findings.
func (s *Scanner) scanOne(ctx context.Context, path string) ([]types.VulnerabilityIssue, string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", 0, err
	}

	content := strings.ToValidUTF8(string(data), "�")
	lang := language.DetectFile(path, data)
	issues := s.analyzer.analyzeContent(ctx, path, lang, content)
	return issues, lang, CountLines(path, data), nil
}

// CreateMergeScanResult assembles a result for a set of changed files whose
// findings were produced elsewhere, typically from a merge-request diff.
func (s *Scanner) CreateMergeScanResult(basePath, scanID string, issues []types.VulnerabilityIssue, diffFiles []string) *types.ScanResult {
	result := types.NewScanResult(scanID, basePath, types.ScanTypeGitMerge)
	result.Issues = issues

	totalLines := 0
	languages := make(map[string]int)
	extensions := make(map[string]int)

	for _, file := range diffFiles {
		fullPath := filepath.Join(basePath, file)
		info, err := os.Stat(fullPath)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		data, err := os.ReadFile(fullPath)
		if err != nil {
			s.logger.Warn("failed to read diff file for stats", "path", fullPath, "error", err)
			continue
		}

		totalLines += CountLines(fullPath, data)
		languages[language.DetectFile(fullPath, data)]++
		extensions[strings.ToLower(filepath.Ext(file))]++
	}

	result.Stats = types.ScanStats{
		TotalFiles:     len(diffFiles),
		TotalLines:     totalLines,
		Languages:      languages,
		FileExtensions: extensions,
	}
	result.ProjectInfo = map[string]interface{}{
		"merge_info": map[string]interface{}{
			"diff_files": diffFiles,
		},
	}
	return result
}
