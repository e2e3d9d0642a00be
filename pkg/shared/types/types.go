package types

import (
	"encoding/json"
	"time"
)

// Severity levels for findings and rules, ordered from most to least severe.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// Confidence levels attached to findings.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Scan types recorded on a ScanResult.
const (
	ScanTypeFile      = "file"
	ScanTypeDirectory = "directory"
	ScanTypeGitMerge  = "git-merge"
)

// Rule sources recorded on a RulePattern.
const (
	RuleSourceUser    = "user"
	RuleSourceSemgrep = "semgrep"
	RuleSourceBuiltin = "builtin"
)

// Severities lists all valid severity values in display order.
var Severities = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// ValidSeverity reports whether s is one of the known severity levels.
func ValidSeverity(s string) bool {
	for _, known := range Severities {
		if s == known {
			return true
		}
	}
	return false
}

// RulePattern is a single detection rule scoped to one or more language buckets.
// Identity is the pair (bucket, ID); two patterns with the same ID in the same
// bucket are the same logical rule across versions.
type RulePattern struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Pattern     string                 `json:"pattern"`
	Description string                 `json:"description"`
	Severity    string                 `json:"severity"`
	Languages   []string               `json:"languages,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// RuleSet maps a language bucket name ("common" for language-agnostic rules)
// to its ordered rule sequence.
type RuleSet map[string][]RulePattern

// TotalRules returns the number of rules across all buckets.
func (rs RuleSet) TotalRules() int {
	total := 0
	for _, rules := range rs {
		total += len(rules)
	}
	return total
}

// VulnerabilityIssue is a single reported problem tied to exactly one file.
// LineNumber and CodeSnippet are optional: pattern matches that cannot be
// localized to a line leave both unset. Issues are immutable once created.
type VulnerabilityIssue struct {
	Severity       string `json:"severity"`
	FilePath       string `json:"file_path"`
	LineNumber     *int   `json:"line_number,omitempty"`
	CodeSnippet    string `json:"code_snippet,omitempty"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
	CWEID          string `json:"cwe_id,omitempty"`
	Confidence     string `json:"confidence"`
}

// ScanStats holds aggregate counters for one scan invocation. Error is set
// when a scan failed partway instead of surfacing the failure as an error
// return.
type ScanStats struct {
	TotalFiles     int            `json:"total_files"`
	TotalLines     int            `json:"total_lines_of_code"`
	Languages      map[string]int `json:"languages,omitempty"`
	FileExtensions map[string]int `json:"file_extensions,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// ScanResult is the full outcome of one scan invocation. It is created once,
// fully populated before being handed to report generators, and never mutated
// afterward.
type ScanResult struct {
	ScanID      string                 `json:"scan_id"`
	ScanPath    string                 `json:"scan_path"`
	ScanType    string                 `json:"scan_type"`
	Timestamp   int64                  `json:"timestamp"`
	Issues      []VulnerabilityIssue   `json:"issues"`
	Stats       ScanStats              `json:"stats"`
	ProjectInfo map[string]interface{} `json:"project_info,omitempty"`
}

// NewScanResult creates an empty result for the given path and scan type,
// stamped with the current time.
func NewScanResult(scanID, scanPath, scanType string) *ScanResult {
	return &ScanResult{
		ScanID:    scanID,
		ScanPath:  scanPath,
		ScanType:  scanType,
		Timestamp: time.Now().Unix(),
	}
}

// TotalIssues returns the number of issues found. Derived, not stored.
func (r *ScanResult) TotalIssues() int {
	return len(r.Issues)
}

// IssuesBySeverity counts issues per severity level. Every known level is
// present in the returned map, including zero counts.
func (r *ScanResult) IssuesBySeverity() map[string]int {
	counts := make(map[string]int, len(Severities))
	for _, s := range Severities {
		counts[s] = 0
	}
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	return counts
}

// ToJSON serializes the result. The representation is lossless: FromJSON on
// the output reproduces an equal result.
func (r *ScanResult) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON deserializes a result previously produced by ToJSON.
func FromJSON(data []byte) (*ScanResult, error) {
	var result ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
