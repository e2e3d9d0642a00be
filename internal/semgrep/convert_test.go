package semgrep

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

func TestConvertRuleDirectPattern(t *testing.T) {
	raw := map[string]interface{}{
		"id":        "python.lang.security.eval",
		"message":   "eval of untrusted input",
		"severity":  "ERROR",
		"languages": []interface{}{"Python"},
		"pattern":   "eval($X)",
	}

	rule, buckets, ok := ConvertRule(raw)
	require.True(t, ok)
	assert.Equal(t, "python.lang.security.eval", rule.ID)
	assert.Equal(t, "error", rule.Severity)
	assert.Equal(t, types.RuleSourceSemgrep, rule.Source)
	assert.Equal(t, []string{"python"}, buckets)

	// Metavariables are stripped and the remainder escaped.
	assert.NotContains(t, rule.Pattern, "$X")
	assert.Contains(t, rule.Pattern, "eval")
}

func TestConvertRulePatternEitherJoinsAlternatives(t *testing.T) {
	raw := map[string]interface{}{
		"id":      "ruby.unsafe-send",
		"message": "dynamic dispatch",
		"pattern-either": []interface{}{
			"send($X)",
			map[string]interface{}{"pattern": "public_send($X)"},
		},
	}

	rule, buckets, ok := ConvertRule(raw)
	require.True(t, ok)
	assert.Contains(t, rule.Pattern, "send")
	assert.Contains(t, rule.Pattern, "public_send")
	assert.Equal(t, []string{"common"}, buckets)
}

func TestConvertRulePatternRegexAndInside(t *testing.T) {
	rule, _, ok := ConvertRule(map[string]interface{}{
		"id":            "regex-rule",
		"pattern-regex": "md5\\(",
	})
	require.True(t, ok)
	assert.Contains(t, rule.Pattern, "md5")

	rule, _, ok = ConvertRule(map[string]interface{}{
		"id":             "inside-rule",
		"pattern-inside": "def handler(request):",
	})
	require.True(t, ok)
	assert.Contains(t, rule.Pattern, "handler")
}

func TestConvertRulePatternsListOneNestingLevel(t *testing.T) {
	raw := map[string]interface{}{
		"id": "nested-rule",
		"patterns": []interface{}{
			map[string]interface{}{"metavariable-regex": "ignored"},
			map[string]interface{}{
				"patterns": []interface{}{
					map[string]interface{}{"pattern": "subprocess.Popen($CMD)"},
				},
			},
		},
	}

	rule, _, ok := ConvertRule(raw)
	require.True(t, ok)
	assert.Contains(t, rule.Pattern, "Popen")
}

func TestConvertRuleMetadataPlaceholder(t *testing.T) {
	rule, _, ok := ConvertRule(map[string]interface{}{
		"id":       "meta-only",
		"message":  "weak crypto",
		"metadata": map[string]interface{}{"cwe": "327"},
	})
	require.True(t, ok)
	assert.Contains(t, rule.Pattern, "CWE-327")

	rule, _, ok = ConvertRule(map[string]interface{}{
		"id":      "id-only",
		"message": "nothing extractable",
	})
	require.True(t, ok)
	assert.Contains(t, rule.Pattern, "id-only")
}

func TestConvertRulePatternOnlyDocument(t *testing.T) {
	rule, buckets, ok := ConvertRule(map[string]interface{}{
		"pattern":   "strcpy($DST, $SRC)",
		"languages": []interface{}{"C"},
	})
	require.True(t, ok)
	assert.Empty(t, rule.ID)
	assert.Contains(t, rule.Pattern, "strcpy")
	assert.Equal(t, []string{"c"}, buckets)

	// Neither identity nor an extractable pattern: nothing to build from.
	_, _, ok = ConvertRule(map[string]interface{}{
		"metadata": map[string]interface{}{"confidence": "high"},
	})
	assert.False(t, ok)
}

func TestConvertRuleNameFromMessage(t *testing.T) {
	long := strings.Repeat("a very long message ", 10)
	rule, _, ok := ConvertRule(map[string]interface{}{
		"id":      "named",
		"message": long,
		"pattern": "x",
	})
	require.True(t, ok)
	assert.Len(t, []rune(rule.Name), maxNameFromMessage)
}

func TestConvertRuleMultipleLanguageBuckets(t *testing.T) {
	_, buckets, ok := ConvertRule(map[string]interface{}{
		"id":        "multi",
		"pattern":   "x",
		"languages": []interface{}{"Python", "JavaScript"},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"python", "javascript"}, buckets)
}

func TestConvertFileTopLevelRulesList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - id: py-eval
    message: eval usage
    severity: WARNING
    languages: [python]
    pattern: eval($X)
  - id: py-exec
    message: exec usage
    languages: [python]
    pattern: exec($X)
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := ConvertFile(path, hclog.NewNullLogger())
	require.Len(t, result["python"], 2)
	assert.Equal(t, "py-eval", result["python"][0].ID)
	assert.Equal(t, "py-exec", result["python"][1].ID)
}

func TestConvertFileSingleInlineRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "single.yml")
	content := `id: inline-rule
message: inline
pattern: dangerous()
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := ConvertFile(path, hclog.NewNullLogger())
	require.Len(t, result["common"], 1)
	assert.Equal(t, "inline-rule", result["common"][0].ID)
}

func TestConvertFileNamedSubDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grouped.yaml")
	content := `crypto:
  rules:
    - id: weak-md5
      message: weak hash
      languages: [go]
      pattern: md5.New()
inline:
  id: direct
  message: direct pattern
  pattern: unsafe()
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result := ConvertFile(path, hclog.NewNullLogger())
	require.Len(t, result["go"], 1)
	require.Len(t, result["common"], 1)
	assert.Equal(t, "weak-md5", result["go"][0].ID)
	assert.Equal(t, "direct", result["common"][0].ID)
}

func TestConvertFileEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.Zero(t, ConvertFile(empty, hclog.NewNullLogger()).TotalRules())

	malformed := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(malformed, []byte(":\n  - ["), 0o644))
	assert.Zero(t, ConvertFile(malformed, hclog.NewNullLogger()).TotalRules())
}

func TestConvertDirRecursive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "python", "security"), 0o755))

	top := `rules:
  - id: top-rule
    message: top
    pattern: a()
`
	nested := `rules:
  - id: nested-rule
    message: nested
    languages: [python]
    pattern: b()
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.yaml"), []byte(top), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python", "security", "nested.yml"), []byte(nested), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0o644))

	result := ConvertDir(dir, hclog.NewNullLogger())
	assert.Equal(t, 2, result.TotalRules())
	assert.Len(t, result["common"], 1)
	assert.Len(t, result["python"], 1)
}
