package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

func issue(description, file string, line int, snippet string) types.VulnerabilityIssue {
	result := types.VulnerabilityIssue{
		Severity:    types.SeverityHigh,
		FilePath:    file,
		Description: description,
		CodeSnippet: snippet,
		Confidence:  types.ConfidenceMedium,
	}
	if line > 0 {
		result.LineNumber = &line
	}
	return result
}

func resultWith(scanID string, issues ...types.VulnerabilityIssue) *types.ScanResult {
	result := types.NewScanResult(scanID, "/tmp/project", types.ScanTypeDirectory)
	result.Issues = issues
	return result
}

func TestCompareSplitsNewResolvedPersisting(t *testing.T) {
	baseline := resultWith("dir_base",
		issue("Command injection", "app.py", 10, "os.system(cmd)"),
		issue("Weak hash", "crypto.py", 5, "md5.new()"),
	)
	current := resultWith("dir_cur",
		issue("Command injection", "app.py", 10, "os.system(cmd)"),
		issue("Hardcoded secret", "settings.py", 3, "password = 'x'"),
	)

	cmp := Compare(baseline, current)

	require.Len(t, cmp.Persisting, 1)
	assert.Equal(t, "Command injection", cmp.Persisting[0].Description)

	require.Len(t, cmp.New, 1)
	assert.Equal(t, "Hardcoded secret", cmp.New[0].Description)

	require.Len(t, cmp.Resolved, 1)
	assert.Equal(t, "Weak hash", cmp.Resolved[0].Description)
}

func TestCompareMatchesMovedFindingBySnippet(t *testing.T) {
	baseline := resultWith("dir_base",
		issue("Command injection", "app.py", 10, "os.system(cmd)"))
	current := resultWith("dir_cur",
		issue("Command injection", "app.py", 42, "os.system(cmd)"))

	cmp := Compare(baseline, current)
	assert.Empty(t, cmp.New)
	assert.Empty(t, cmp.Resolved)
	assert.Len(t, cmp.Persisting, 1)
}

func TestCompareMatchesOnDescriptionAndFileAlone(t *testing.T) {
	baseline := resultWith("dir_base",
		issue("Command injection", "app.py", 10, "os.system(cmd)"))
	current := resultWith("dir_cur",
		issue("Command injection", "app.py", 42, "os.system(other)"))

	cmp := Compare(baseline, current)
	assert.Empty(t, cmp.New)
	assert.Len(t, cmp.Persisting, 1)
}

func TestCompareDifferentFilesDoNotMatch(t *testing.T) {
	baseline := resultWith("dir_base",
		issue("Command injection", "app.py", 10, "os.system(cmd)"))
	current := resultWith("dir_cur",
		issue("Command injection", "worker.py", 10, "os.system(cmd)"))

	cmp := Compare(baseline, current)
	assert.Len(t, cmp.New, 1)
	assert.Len(t, cmp.Resolved, 1)
	assert.Empty(t, cmp.Persisting)
}

func TestCompareStrictStageWinsOverLoose(t *testing.T) {
	// Two identical-description findings in the baseline; the exact line match
	// must pair with the exact line, leaving the other to the loose stage.
	baseline := resultWith("dir_base",
		issue("Command injection", "app.py", 10, "os.system(a)"),
		issue("Command injection", "app.py", 20, "os.system(b)"),
	)
	current := resultWith("dir_cur",
		issue("Command injection", "app.py", 20, "os.system(b)"))

	cmp := Compare(baseline, current)
	require.Len(t, cmp.Resolved, 1)
	assert.Equal(t, 10, *cmp.Resolved[0].LineNumber)
	assert.Len(t, cmp.Persisting, 1)
}

func TestCompareEmptyDescriptionsNeverMatch(t *testing.T) {
	baseline := resultWith("dir_base", issue("", "app.py", 10, ""))
	current := resultWith("dir_cur", issue("", "app.py", 10, ""))

	cmp := Compare(baseline, current)
	assert.Len(t, cmp.New, 1)
	assert.Len(t, cmp.Resolved, 1)
}

func TestRenderComparison(t *testing.T) {
	baseline := resultWith("dir_base",
		issue("Weak hash", "crypto.py", 5, "md5.new()"))
	current := resultWith("dir_cur",
		issue("Hardcoded secret", "settings.py", 3, "password = 'x'"))

	text := RenderComparison(baseline, current, Compare(baseline, current))

	assert.Contains(t, text, "against baseline dir_base")
	assert.Contains(t, text, "New: 1  Resolved: 1  Persisting: 0")
	assert.Contains(t, text, "New findings:")
	assert.Contains(t, text, "[HIGH] settings.py:3 Hardcoded secret")
	assert.Contains(t, text, "Resolved findings:")
	assert.Contains(t, text, "[HIGH] crypto.py:5 Weak hash")
}
