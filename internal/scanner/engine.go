package scanner

import (
	"regexp"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// RuleSource provides the active rules for a language bucket. The rule
// repository satisfies it; tests supply fixed rule sets.
type RuleSource interface {
	PatternsFor(lang string) []types.RulePattern
}

const snippetContext = 2

// PatternMatchEngine evaluates rule patterns against file content. Patterns
// compile case-insensitively; compiled expressions are cached across files.
// Matching is deterministic: fixed content and rule set always produce the
// same findings in rule order.
type PatternMatchEngine struct {
	rules  RuleSource
	logger hclog.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewPatternMatchEngine builds an engine over a rule source.
func NewPatternMatchEngine(rules RuleSource, logger hclog.Logger) *PatternMatchEngine {
	return &PatternMatchEngine{
		rules:  rules,
		logger: logger,
		cache:  make(map[string]*regexp.Regexp),
	}
}

// Match runs every rule applying to the given language bucket against the
// content. A matching rule emits one finding, localized to the first matching
// line with a surrounding snippet when possible. Rules that fail to compile
// are logged and skipped.
func (e *PatternMatchEngine) Match(lang, filePath, content string) []types.VulnerabilityIssue {
	var issues []types.VulnerabilityIssue

	for _, rule := range e.rules.PatternsFor(lang) {
		re := e.compile(rule)
		if re == nil {
			continue
		}
		if !re.MatchString(content) {
			continue
		}

		issue := types.VulnerabilityIssue{
			Severity:       rule.Severity,
			FilePath:       filePath,
			Description:    rule.Description,
			Recommendation: ruleRecommendation(rule),
			Confidence:     types.ConfidenceMedium,
		}
		if issue.Severity == "" {
			issue.Severity = types.SeverityMedium
		}
		if issue.Description == "" {
			issue.Description = "Potential vulnerability detected"
		}

		lines := strings.Split(content, "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			lineNumber := i + 1
			issue.LineNumber = &lineNumber
			start := i - snippetContext
			if start < 0 {
				start = 0
			}
			end := i + snippetContext + 1
			if end > len(lines) {
				end = len(lines)
			}
			issue.CodeSnippet = strings.Join(lines[start:end], "\n")
			break
		}

		issues = append(issues, issue)
	}

	return issues
}

func (e *PatternMatchEngine) compile(rule types.RulePattern) *regexp.Regexp {
	if rule.Pattern == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if re, ok := e.cache[rule.Pattern]; ok {
		return re
	}

	re, err := regexp.Compile("(?i)" + rule.Pattern)
	if err != nil {
		e.logger.Warn("skipping rule with invalid pattern", "rule", rule.ID, "error", err)
		e.cache[rule.Pattern] = nil
		return nil
	}
	e.cache[rule.Pattern] = re
	return re
}

func ruleRecommendation(rule types.RulePattern) string {
	if value, ok := rule.Metadata["recommendation"]; ok {
		if text, ok := value.(string); ok && text != "" {
			return text
		}
	}
	return "Review the flagged code"
}
