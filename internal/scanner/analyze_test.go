package scanner

import (
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescan-sec/codescan/internal/provider"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// stubAdapter returns a fixed response or a fixed error for every prompt.
type stubAdapter struct {
	response string
	err      error
}

func (s *stubAdapter) Analyze(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func (s *stubAdapter) Name() string { return "stub" }

func newTestAnalyzer(adapter provider.Adapter) *FileAnalyzer {
	logger := hclog.NewNullLogger()
	return NewFileAnalyzer(adapter, NewPatternMatchEngine(testRules, logger), 0, logger)
}

func TestAnalyzeContentParsesModelFindings(t *testing.T) {
	adapter := &stubAdapter{response: "Here is what I found:\n```json\n" +
		`[{"severity":"high","description":"SQL built by concatenation","line_number":3,"code_snippet":"q := \"select\" + arg","recommendation":"Use placeholders","cwe_id":"CWE-89","confidence":"high"}]` +
		"\n```\nLet me know if you need more detail."}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "db.go", "golang", "q := \"select\" + arg\n")
	require.Len(t, issues, 1)
	assert.Equal(t, types.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "SQL built by concatenation", issues[0].Description)
	assert.Equal(t, "CWE-89", issues[0].CWEID)
	require.NotNil(t, issues[0].LineNumber)
	assert.Equal(t, 3, *issues[0].LineNumber)
	assert.Equal(t, "db.go", issues[0].FilePath)
}

func TestAnalyzeContentBareArrayInProse(t *testing.T) {
	adapter := &stubAdapter{response: `After reviewing the file, my findings are [{"severity":"low","description":"Unused variable"}] as listed above.`}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "x.go", "golang", "package x\n")
	require.Len(t, issues, 1)
	assert.Equal(t, "Unused variable", issues[0].Description)
	assert.Equal(t, types.ConfidenceMedium, issues[0].Confidence)
}

func TestAnalyzeContentEmptyArrayMeansClean(t *testing.T) {
	adapter := &stubAdapter{response: "[]"}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "clean.go", "golang", "package clean\n")
	assert.Empty(t, issues)
}

func TestAnalyzeContentUnparseableResponse(t *testing.T) {
	adapter := &stubAdapter{response: "I could not complete the analysis, sorry."}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "x.go", "golang", "package x\n")
	require.Len(t, issues, 1)
	assert.Equal(t, types.SeverityInfo, issues[0].Severity)
	assert.Equal(t, types.ConfidenceLow, issues[0].Confidence)
	assert.Contains(t, issues[0].Recommendation, "API configuration")
}

func TestAnalyzeContentProviderTimeoutBecomesSingleFinding(t *testing.T) {
	adapter := &stubAdapter{err: &provider.Error{Kind: provider.KindTimeout, Provider: "stub", Message: "request timed out"}}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "app.py", "python", "os.system(cmd)\n")
	require.Len(t, issues, 1)
	assert.Equal(t, types.SeverityInfo, issues[0].Severity)
	assert.Equal(t, types.ConfidenceHigh, issues[0].Confidence)
	assert.Contains(t, issues[0].Description, "timed out")
}

func TestAnalyzeContentInvalidSeverityDefaultsToMedium(t *testing.T) {
	adapter := &stubAdapter{response: `[{"severity":"catastrophic","description":"made up level"}]`}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "x.go", "golang", "package x\n")
	require.Len(t, issues, 1)
	assert.Equal(t, types.SeverityMedium, issues[0].Severity)
}

func TestAnalyzeContentAppendsEngineFindings(t *testing.T) {
	adapter := &stubAdapter{response: `[{"severity":"low","description":"Model finding"}]`}
	analyzer := newTestAnalyzer(adapter)

	issues := analyzer.analyzeContent(context.Background(), "app.py", "python", "os.system(cmd)\n")
	require.Len(t, issues, 2)
	assert.Equal(t, "Model finding", issues[0].Description)
	assert.Equal(t, "Command injection", issues[1].Description)
}

func TestExtractFileInfoPython(t *testing.T) {
	content := "\"\"\"Payment helpers.\"\"\"\nimport os\nfrom decimal import Decimal\n\nclass Invoice:\n    def total(self):\n        return 0\n\ndef render(invoice):\n    pass\n"

	info := ExtractFileInfo("python", content)
	assert.Equal(t, []string{"Invoice"}, info.Classes)
	assert.Equal(t, []string{"total", "render"}, info.Functions)
	assert.Len(t, info.Imports, 2)
	assert.Equal(t, "Payment helpers.", info.Summary)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, CountLines("empty.py", nil))
	assert.Equal(t, 2, CountLines("two.txt", []byte("one\ntwo\n")))
	assert.Equal(t, 2, CountLines("noeol.txt", []byte("one\ntwo")))
}
