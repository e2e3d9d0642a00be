package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/internal/provider"
	"github.com/codescan-sec/codescan/pkg/shared/language"
	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// FileAnalyzer runs the per-file pipeline: read content, delegate semantic
// analysis to the model adapter, defensively parse its output and append the
// deterministic pattern engine findings. Adapter failures never escape: they
// become diagnostic findings so the report shows why coverage is incomplete.
type FileAnalyzer struct {
	adapter provider.Adapter
	engine  *PatternMatchEngine
	timeout time.Duration
	logger  hclog.Logger
}

// NewFileAnalyzer builds an analyzer. The timeout bounds each outbound
// analysis call so one stuck provider request cannot stall the worker pool.
func NewFileAnalyzer(adapter provider.Adapter, engine *PatternMatchEngine, timeout time.Duration, logger hclog.Logger) *FileAnalyzer {
	return &FileAnalyzer{
		adapter: adapter,
		engine:  engine,
		timeout: timeout,
		logger:  logger,
	}
}

// AnalyzeFile reads one file and returns its findings together with the
// detected language bucket. An unreadable file is the only error condition;
// every analysis-side failure is reported as a finding instead.
func (a *FileAnalyzer) AnalyzeFile(ctx context.Context, path string) ([]types.VulnerabilityIssue, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file %q: %w", path, err)
	}

	// Invalid UTF-8 is replaced rather than failing the scan.
	content := strings.ToValidUTF8(string(data), "�")
	lang := language.DetectFile(path, data)

	issues := a.analyzeContent(ctx, path, lang, content)
	return issues, lang, nil
}

func (a *FileAnalyzer) analyzeContent(ctx context.Context, path, lang, content string) []types.VulnerabilityIssue {
	prompt := buildAnalysisPrompt(path, lang, content)

	callCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.logger.Debug("requesting model analysis", "path", path, "provider", a.adapter.Name())
	response, err := a.adapter.Analyze(callCtx, prompt)
	if err != nil {
		a.logger.Warn("model analysis failed", "path", path, "error", err)
		return []types.VulnerabilityIssue{{
			Severity:       types.SeverityInfo,
			FilePath:       path,
			Description:    fmt.Sprintf("Analysis service error: %v", err),
			Recommendation: "Check the model API configuration, credentials and network connectivity, then retry.",
			Confidence:     types.ConfidenceHigh,
		}}
	}

	issues := parseModelFindings(path, response)
	if issues == nil {
		a.logger.Warn("model response was not parseable JSON", "path", path)
		issues = []types.VulnerabilityIssue{{
			Severity:       types.SeverityInfo,
			FilePath:       path,
			Description:    "The model did not return a parseable JSON finding list, so semantic analysis is incomplete for this file",
			Recommendation: "Check the model API configuration and retry.",
			Confidence:     types.ConfidenceLow,
		}}
	}

	// Engine findings always follow the model findings. The two sources are
	// independent and are not deduplicated.
	return append(issues, a.engine.Match(lang, path, content)...)
}

func buildAnalysisPrompt(path, lang, content string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %s code for security vulnerabilities, potential bugs and bad practices.\n", lang)
	fmt.Fprintf(&b, "File path: %s\n\n", path)
	b.WriteString("Pay particular attention to:\n")
	b.WriteString("1. Common security flaws such as SQL injection and XSS\n")
	b.WriteString("2. Unsafe dependency and API usage\n")
	b.WriteString("3. Hardcoded keys and credentials\n")
	b.WriteString("4. Unhandled errors and exceptions\n")
	b.WriteString("5. Memory and resource leaks\n")
	b.WriteString("6. Logic errors\n")
	b.WriteString("7. Code quality problems\n\n")
	fmt.Fprintf(&b, "```\n%s\n```\n\n", content)
	b.WriteString("Return the result as a JSON array in the following format:\n")
	b.WriteString("```json\n")
	b.WriteString("[\n  {\n")
	b.WriteString("    \"severity\": \"critical|high|medium|low|info\",\n")
	b.WriteString("    \"description\": \"description of the problem\",\n")
	b.WriteString("    \"line_number\": 42,\n")
	b.WriteString("    \"code_snippet\": \"the offending code\",\n")
	b.WriteString("    \"recommendation\": \"how to fix it\",\n")
	b.WriteString("    \"cwe_id\": \"CWE identifier\",\n")
	b.WriteString("    \"confidence\": \"high|medium|low\"\n")
	b.WriteString("  }\n]\n")
	b.WriteString("```\n")
	b.WriteString("Return an empty array [] if no issues are found.\n")
	return b.String()
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

type modelFinding struct {
	Severity       string `json:"severity"`
	Description    string `json:"description"`
	LineNumber     *int   `json:"line_number"`
	CodeSnippet    string `json:"code_snippet"`
	Recommendation string `json:"recommendation"`
	CWEID          string `json:"cwe_id"`
	Confidence     string `json:"confidence"`
}

// parseModelFindings extracts a JSON finding array from a free-text model
// response. It tries a fenced code block first, then the span between the
// first "[" and the last "]", then the whole response. A nil return means no
// candidate parsed.
func parseModelFindings(path, response string) []types.VulnerabilityIssue {
	candidate := ""
	for _, match := range fencedBlockRe.FindAllStringSubmatch(response, -1) {
		if strings.TrimSpace(match[1]) != "" {
			candidate = match[1]
			break
		}
	}
	if candidate == "" {
		candidate = response
	}

	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "[") {
		start := strings.Index(candidate, "[")
		end := strings.LastIndex(candidate, "]")
		if start != -1 && end > start {
			candidate = candidate[start : end+1]
		}
	}

	var raw []modelFinding
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}

	issues := make([]types.VulnerabilityIssue, 0, len(raw))
	for _, finding := range raw {
		issue := types.VulnerabilityIssue{
			Severity:       finding.Severity,
			FilePath:       path,
			LineNumber:     finding.LineNumber,
			CodeSnippet:    finding.CodeSnippet,
			Description:    finding.Description,
			Recommendation: finding.Recommendation,
			CWEID:          finding.CWEID,
			Confidence:     finding.Confidence,
		}
		if !types.ValidSeverity(issue.Severity) {
			issue.Severity = types.SeverityMedium
		}
		if issue.Description == "" {
			issue.Description = "No description provided"
		}
		if issue.Confidence == "" {
			issue.Confidence = types.ConfidenceMedium
		}
		issues = append(issues, issue)
	}
	return issues
}
