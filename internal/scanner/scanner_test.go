package scanner

import (
	"context"
	"sort"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescan-sec/codescan/pkg/shared/config"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

func newTestScanner(t *testing.T, adapter *stubAdapter) *Scanner {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scan.Timeout = 0
	return New(cfg, adapter, testRules, hclog.NewNullLogger())
}

func fixtureTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "app.py", "import os\nos.system(cmd)\n")
	writeFile(t, dir, "web/page.js", "document.body.innerHTML = input\n")
	writeFile(t, dir, "node_modules/dep/index.js", "eval(payload)\n")
	writeFile(t, dir, "logo.png", "not really an image")
	return dir
}

func sortedFindings(issues []types.VulnerabilityIssue) []types.VulnerabilityIssue {
	out := append([]types.VulnerabilityIssue{}, issues...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].FilePath != out[j].FilePath {
			return out[i].FilePath < out[j].FilePath
		}
		return out[i].Description < out[j].Description
	})
	return out
}

func TestScanDirectoryFindsRuleMatches(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := fixtureTree(t)

	result, err := scanner.ScanDirectory(context.Background(), dir, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, types.ScanTypeDirectory, result.ScanType)
	assert.Equal(t, 2, result.Stats.TotalFiles)
	assert.Equal(t, 1, result.Stats.Languages["python"])
	assert.Equal(t, 1, result.Stats.Languages["javascript"])
	assert.Greater(t, result.Stats.TotalLines, 0)

	// Only the python rule matches: the excluded tree never reaches analysis.
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Command injection", result.Issues[0].Description)
	assert.Equal(t, types.SeverityCritical, result.Issues[0].Severity)
}

func TestScanDirectoryConcurrencyInvariant(t *testing.T) {
	dir := fixtureTree(t)

	serial := newTestScanner(t, &stubAdapter{response: "[]"})
	parallel := newTestScanner(t, &stubAdapter{response: "[]"})

	one, err := serial.ScanDirectory(context.Background(), dir, 1, nil)
	require.NoError(t, err)
	eight, err := parallel.ScanDirectory(context.Background(), dir, 8, nil)
	require.NoError(t, err)

	assert.Equal(t, one.Stats.TotalFiles, eight.Stats.TotalFiles)
	assert.Equal(t, one.Stats.TotalLines, eight.Stats.TotalLines)
	assert.Equal(t, one.Stats.Languages, eight.Stats.Languages)
	assert.Equal(t, one.Stats.FileExtensions, eight.Stats.FileExtensions)
	assert.Equal(t, sortedFindings(one.Issues), sortedFindings(eight.Issues))
}

func TestScanDirectoryProgressMonotonic(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := fixtureTree(t)

	var percents []int
	_, err := scanner.ScanDirectory(context.Background(), dir, 1, func(message string, percent int) {
		percents = append(percents, percent)
	})
	require.NoError(t, err)

	require.NotEmpty(t, percents)
	for i := 1; i < len(percents); i++ {
		assert.GreaterOrEqual(t, percents[i], percents[i-1])
	}
	assert.Equal(t, 95, percents[len(percents)-1])
}

func TestScanDirectoryEmptyTree(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := t.TempDir()

	var lastPercent int
	result, err := scanner.ScanDirectory(context.Background(), dir, 2, func(message string, percent int) {
		lastPercent = percent
	})
	require.NoError(t, err)

	assert.NotEmpty(t, result.Stats.Error)
	assert.Empty(t, result.Issues)
	assert.Equal(t, 100, lastPercent)
}

func TestScanDirectoryCancelledContext(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := fixtureTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	progressCalls := 0
	result, err := scanner.ScanDirectory(ctx, dir, 2, func(message string, percent int) {
		progressCalls++
	})
	require.NoError(t, err)

	assert.Zero(t, progressCalls)
	assert.Contains(t, result.Stats.Error, "cancelled")
}

func TestScanDirectoryRejectsNonDirectory(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := t.TempDir()
	file := writeFile(t, dir, "single.py", "print('x')\n")

	_, err := scanner.ScanDirectory(context.Background(), file, 1, nil)
	assert.Error(t, err)
}

func TestScanFile(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := t.TempDir()
	path := writeFile(t, dir, "app.py", "import os\nos.system(cmd)\n")

	result, err := scanner.ScanFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, types.ScanTypeFile, result.ScanType)
	assert.Equal(t, 1, result.Stats.TotalFiles)
	assert.Equal(t, map[string]int{"python": 1}, result.Stats.Languages)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "Command injection", result.Issues[0].Description)
	require.Contains(t, result.ProjectInfo, "file_info")
}

func TestScanFileExcludedYieldsEmptyResult(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := t.TempDir()
	path := writeFile(t, dir, "bundle.min.js", "!function(){}()\n")

	result, err := scanner.ScanFile(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
	assert.Zero(t, result.Stats.TotalFiles)
}

func TestScanFileRejectsMissingFile(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})

	_, err := scanner.ScanFile(context.Background(), "/does/not/exist.py")
	assert.Error(t, err)
}

func TestScanResultRoundTripAfterScan(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := fixtureTree(t)

	result, err := scanner.ScanDirectory(context.Background(), dir, 2, nil)
	require.NoError(t, err)

	data, err := result.ToJSON()
	require.NoError(t, err)
	restored, err := types.FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, result.ScanID, restored.ScanID)
	assert.Equal(t, result.Stats, restored.Stats)
	assert.Equal(t, sortedFindings(result.Issues), sortedFindings(restored.Issues))
}

func TestCreateMergeScanResult(t *testing.T) {
	scanner := newTestScanner(t, &stubAdapter{response: "[]"})
	dir := t.TempDir()
	writeFile(t, dir, "svc/handler.py", "import os\n")
	writeFile(t, dir, "web/app.js", "console.log(1)\n")

	issues := []types.VulnerabilityIssue{{
		Severity:    types.SeverityHigh,
		FilePath:    "svc/handler.py",
		Description: "from diff analysis",
		Confidence:  types.ConfidenceMedium,
	}}

	result := scanner.CreateMergeScanResult(dir, "merge_1", issues, []string{"svc/handler.py", "web/app.js", "deleted.py"})

	assert.Equal(t, types.ScanTypeGitMerge, result.ScanType)
	assert.Equal(t, "merge_1", result.ScanID)
	assert.Equal(t, 3, result.Stats.TotalFiles)
	assert.Equal(t, 1, result.Stats.Languages["python"])
	assert.Equal(t, 1, result.Stats.Languages["javascript"])
	assert.Len(t, result.Issues, 1)
	require.Contains(t, result.ProjectInfo, "merge_info")
}
