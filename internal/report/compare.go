package report

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

// Comparison splits the findings of a current scan against a baseline scan of
// the same code base.
type Comparison struct {
	New        []types.VulnerabilityIssue
	Resolved   []types.VulnerabilityIssue
	Persisting []types.VulnerabilityIssue
}

// Compare correlates the findings of two scans. Matching runs in stages from
// strict to loose: description, file, line and snippet first, then
// progressively fewer location attributes. A finding matched in an earlier
// stage is excluded from later stages, so a finding that merely moved inside
// its file counts as persisting instead of a resolved/new pair.
//
// Stages:
//  1. description + file + line + snippet hash
//  2. description + file + snippet hash
//  3. description + file + line
//  4. description + file
func Compare(baseline, current *types.ScanResult) Comparison {
	matchedBase := make(map[int]bool)
	matchedCur := make(map[int]bool)

	for stage := 1; stage <= 4; stage++ {
		matchedBaseThis := make(map[int]bool)
		matchedCurThis := make(map[int]bool)

		for bi, b := range baseline.Issues {
			if matchedBase[bi] {
				continue
			}
			for ci, c := range current.Issues {
				if matchedCur[ci] {
					continue
				}
				if matchIssues(b, c, stage) {
					matchedBaseThis[bi] = true
					matchedCurThis[ci] = true
				}
			}
		}

		for bi := range matchedBaseThis {
			matchedBase[bi] = true
		}
		for ci := range matchedCurThis {
			matchedCur[ci] = true
		}
	}

	var cmp Comparison
	for ci, c := range current.Issues {
		if matchedCur[ci] {
			cmp.Persisting = append(cmp.Persisting, c)
		} else {
			cmp.New = append(cmp.New, c)
		}
	}
	for bi, b := range baseline.Issues {
		if !matchedBase[bi] {
			cmp.Resolved = append(cmp.Resolved, b)
		}
	}
	return cmp
}

// matchIssues applies one comparison stage. Description and file path must
// agree at every stage; a finding without a description never matches.
func matchIssues(a, b types.VulnerabilityIssue, stage int) bool {
	if a.Description == "" || b.Description == "" {
		return false
	}
	if a.Description != b.Description || a.FilePath != b.FilePath {
		return false
	}

	switch stage {
	case 1:
		return lineOf(a) == lineOf(b) && snippetHash(a) == snippetHash(b)
	case 2:
		return snippetHash(a) == snippetHash(b)
	case 3:
		return lineOf(a) == lineOf(b)
	case 4:
		return true
	default:
		return false
	}
}

// RenderComparison produces a human-readable summary of a Compare outcome.
func RenderComparison(baseline, current *types.ScanResult, cmp Comparison) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Comparing scan %s against baseline %s\n", current.ScanID, baseline.ScanID)
	fmt.Fprintf(&b, "Path: %s\n\n", current.ScanPath)
	fmt.Fprintf(&b, "New: %d  Resolved: %d  Persisting: %d\n\n", len(cmp.New), len(cmp.Resolved), len(cmp.Persisting))

	writeComparisonSection(&b, "New findings", cmp.New)
	writeComparisonSection(&b, "Resolved findings", cmp.Resolved)

	return b.String()
}

func writeComparisonSection(b *strings.Builder, title string, issues []types.VulnerabilityIssue) {
	if len(issues) == 0 {
		return
	}

	sorted := make([]types.VulnerabilityIssue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FilePath != sorted[j].FilePath {
			return sorted[i].FilePath < sorted[j].FilePath
		}
		return lineOf(sorted[i]) < lineOf(sorted[j])
	})

	fmt.Fprintf(b, "%s:\n", title)
	for _, issue := range sorted {
		position := "-"
		if issue.LineNumber != nil {
			position = fmt.Sprintf("%d", *issue.LineNumber)
		}
		fmt.Fprintf(b, "  [%s] %s:%s %s\n", strings.ToUpper(issue.Severity), issue.FilePath, position, issue.Description)
	}
	b.WriteString("\n")
}

// snippetHash fingerprints a finding's code snippet. Findings without a
// snippet hash to the empty string and compare equal to each other.
func snippetHash(issue types.VulnerabilityIssue) string {
	if issue.CodeSnippet == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(issue.CodeSnippet))
	return fmt.Sprintf("%x", sum[:])
}
