package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

const (
	structureMaxDepth  = 3
	fileOverviewLimit  = 3000
	overviewNotDerived = "not determined"
)

// generateProjectInfo asks the model for a high-level description of the
// scanned project. Failures degrade to a stats-only info block; the scan
// result never depends on this call succeeding.
func (s *Scanner) generateProjectInfo(ctx context.Context, dirPath string, stats types.ScanStats) map[string]interface{} {
	structure, _ := json.MarshalIndent(s.directoryStructure(dirPath, structureMaxDepth), "", "  ")

	var b strings.Builder
	b.WriteString("Based on the following project statistics, describe the project's type, structure and main functionality.\n\n")
	fmt.Fprintf(&b, "Project path: %s\n", dirPath)
	fmt.Fprintf(&b, "Total files: %d\n", stats.TotalFiles)
	fmt.Fprintf(&b, "Lines of code: %d\n", stats.TotalLines)
	fmt.Fprintf(&b, "Primary language: %s\n", dominantLanguage(stats.Languages))
	fmt.Fprintf(&b, "Language distribution: %v\n", stats.Languages)
	fmt.Fprintf(&b, "File type distribution: %v\n\n", stats.FileExtensions)
	fmt.Fprintf(&b, "Directory structure:\n%s\n\n", structure)
	b.WriteString("Answer with a strict JSON object containing these fields:\n")
	b.WriteString("- \"project_type\": kind of project\n")
	b.WriteString("- \"main_functionality\": what it does\n")
	b.WriteString("- \"components\": list of main components\n")
	b.WriteString("- \"architecture\": short architecture description\n")
	b.WriteString("- \"use_cases\": list of likely use cases\n")
	b.WriteString("Return valid JSON only, with no extra text, code fences or explanation.\n")

	info := s.requestOverview(ctx, b.String())
	if info == nil {
		return map[string]interface{}{"stats": stats}
	}

	ensureField(info, "project_type", overviewNotDerived)
	ensureField(info, "main_functionality", overviewNotDerived)
	ensureField(info, "architecture", overviewNotDerived)
	ensureListField(info, "components")
	ensureListField(info, "use_cases")
	info["stats"] = stats
	return info
}

// generateFileInfo is the single-file counterpart of generateProjectInfo,
// reshaping the model's per-file answer into the project info layout.
func (s *Scanner) generateFileInfo(ctx context.Context, path, lang, content string, stats types.ScanStats) map[string]interface{} {
	sample := content
	truncated := ""
	if len(sample) > fileOverviewLimit {
		sample = sample[:fileOverviewLimit]
		truncated = "\n..."
	}

	var b strings.Builder
	b.WriteString("Provide a brief but complete analysis of the following file.\n\n")
	fmt.Fprintf(&b, "File name: %s\n", filepath.Base(path))
	fmt.Fprintf(&b, "File path: %s\n", path)
	fmt.Fprintf(&b, "Language: %s\n", lang)
	fmt.Fprintf(&b, "Lines of code: %d\n\n", stats.TotalLines)
	fmt.Fprintf(&b, "File content:\n```\n%s\n```%s\n\n", sample, truncated)
	b.WriteString("Answer with a strict JSON object containing these fields:\n")
	b.WriteString("- \"file_purpose\": what the file does\n")
	b.WriteString("- \"main_components\": list of main classes, functions or components\n")
	b.WriteString("- \"possible_role\": the file's likely role in its project\n")
	b.WriteString("- \"code_quality\": assessment of code quality and structure\n")
	b.WriteString("- \"suggested_improvements\": list of suggested improvements\n")
	b.WriteString("Return valid JSON only, with no extra text, code fences or explanation.\n")

	info := s.requestOverview(ctx, b.String())
	if info == nil {
		return map[string]interface{}{
			"project_type":       lang + " file",
			"main_functionality": filepath.Base(path),
			"components":         []interface{}{},
			"architecture":       "single file",
			"use_cases":          []interface{}{},
			"stats":              stats,
		}
	}

	ensureField(info, "file_purpose", overviewNotDerived)
	ensureField(info, "possible_role", overviewNotDerived)
	ensureField(info, "code_quality", overviewNotDerived)
	ensureListField(info, "main_components")
	ensureListField(info, "suggested_improvements")

	return map[string]interface{}{
		"project_type":       lang + " file",
		"main_functionality": info["file_purpose"],
		"components":         info["main_components"],
		"architecture":       info["possible_role"],
		"use_cases":          []interface{}{},
		"file_analysis": map[string]interface{}{
			"code_quality":           info["code_quality"],
			"suggested_improvements": info["suggested_improvements"],
		},
		"stats": stats,
	}
}

// requestOverview calls the model and defensively extracts a JSON object from
// its answer. A nil return means the call failed or nothing parsed.
func (s *Scanner) requestOverview(ctx context.Context, prompt string) map[string]interface{} {
	callCtx := ctx
	if s.cfg.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Scan.Timeout)
		defer cancel()
	}

	response, err := s.adapter.Analyze(callCtx, prompt)
	if err != nil {
		s.logger.Warn("overview analysis failed", "error", err)
		return nil
	}
	return extractJSONObject(response)
}

// extractJSONObject tries the whole text, then a fenced code block, then the
// span between the first "{" and the last "}".
func extractJSONObject(text string) map[string]interface{} {
	var info map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &info); err == nil {
		return info
	}

	for _, match := range fencedBlockRe.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(match[1])
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), &info); err == nil {
			return info
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &info); err == nil {
			return info
		}
	}
	return nil
}

// directoryStructure builds a nested listing for the overview prompt, bounded
// in depth and honoring the path filter.
func (s *Scanner) directoryStructure(dirPath string, depth int) map[string]interface{} {
	if depth <= 0 {
		return map[string]interface{}{"...": "..."}
	}

	result := make(map[string]interface{})
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		s.logger.Warn("failed to read directory for structure listing", "path", dirPath, "error", err)
		return result
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dirPath, entry.Name())
		if entry.IsDir() {
			if s.filter.ExcludedDir(entry.Name()) {
				continue
			}
			result[entry.Name()] = s.directoryStructure(entryPath, depth-1)
			continue
		}
		if s.filter.ShouldExclude(entryPath) {
			continue
		}
		size := int64(0)
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		result[entry.Name()] = map[string]interface{}{"type": "file", "size": size}
	}
	return result
}

func dominantLanguage(languages map[string]int) string {
	best := "unknown"
	bestCount := 0
	for lang, count := range languages {
		if count > bestCount || (count == bestCount && lang < best && bestCount > 0) {
			best = lang
			bestCount = count
		}
	}
	return best
}

func ensureField(info map[string]interface{}, key, fallback string) {
	if _, ok := info[key]; !ok {
		info[key] = fallback
	}
}

func ensureListField(info map[string]interface{}, key string) {
	if _, ok := info[key]; !ok {
		info[key] = []interface{}{}
	}
}
