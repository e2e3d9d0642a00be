// Package semgrep imports rule sets written in the semgrep YAML dialect and
// translates them into the repository's plain-pattern format. The translation
// deliberately trades dialect expressiveness for safety: extracted patterns
// are stripped of metavariables and escaped, so imported rules behave as
// plain-text matchers.
package semgrep

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	yaml "gopkg.in/yaml.v3"

	"github.com/codescan-sec/codescan/pkg/shared/types"
)

const maxNameFromMessage = 50

var metavarRe = regexp.MustCompile(`[$][A-Z_]+`)

// ConvertRule translates one raw rule document into a RulePattern plus the
// lowercase bucket names it belongs to. A rule with no usable pattern falls
// back to a placeholder derived from its metadata or id, so no rule is
// silently dropped. The second return is false only when the document carries
// nothing to build a rule from.
func ConvertRule(raw map[string]interface{}) (types.RulePattern, []string, bool) {
	id := stringField(raw, "id")
	message := stringField(raw, "message")
	severity := strings.ToLower(stringField(raw, "severity"))
	if severity == "" {
		severity = types.SeverityMedium
	}

	name := stringField(raw, "name")
	if name == "" {
		name = truncateRunes(message, maxNameFromMessage)
	}

	pattern := extractPattern(raw)
	if pattern == "" && id == "" && name == "" && message == "" {
		return types.RulePattern{}, nil, false
	}
	if pattern == "" {
		pattern = placeholderPattern(raw, id)
	}

	// Strip dialect metavariables and ellipsis wildcards, then escape what
	// remains so the stored pattern is a safe plain-text matcher.
	pattern = metavarRe.ReplaceAllString(pattern, "")
	pattern = strings.ReplaceAll(pattern, "...", ".*?")
	pattern = regexp.QuoteMeta(pattern)

	languages := languageList(raw)
	buckets := make([]string, 0, len(languages))
	for _, lang := range languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			normalized = "common"
		}
		buckets = append(buckets, normalized)
	}
	if len(buckets) == 0 {
		buckets = []string{"common"}
	}

	rule := types.RulePattern{
		ID:          id,
		Name:        name,
		Pattern:     pattern,
		Description: message,
		Severity:    severity,
		Languages:   languages,
		Source:      types.RuleSourceSemgrep,
	}
	if metadata, ok := raw["metadata"].(map[string]interface{}); ok {
		rule.Metadata = metadata
	}
	return rule, buckets, true
}

// extractPattern tries the dialect's pattern keys in priority order. Only the
// first present key is consulted, matching the dialect's own exclusivity.
func extractPattern(raw map[string]interface{}) string {
	switch {
	case hasKey(raw, "pattern"):
		switch p := raw["pattern"].(type) {
		case string:
			return p
		case map[string]interface{}:
			if nested, ok := p["pattern"].(string); ok {
				return nested
			}
		}
	case hasKey(raw, "pattern-either"):
		list, ok := raw["pattern-either"].([]interface{})
		if !ok {
			return ""
		}
		var parts []string
		for _, entry := range list {
			switch p := entry.(type) {
			case string:
				parts = append(parts, strings.ReplaceAll(p, "\n", " "))
			case map[string]interface{}:
				if nested, ok := p["pattern"].(string); ok {
					parts = append(parts, strings.ReplaceAll(nested, "\n", " "))
				}
			}
		}
		return strings.Join(parts, "|")
	case hasKey(raw, "pattern-regex"):
		if p, ok := raw["pattern-regex"].(string); ok {
			return p
		}
	case hasKey(raw, "pattern-inside"):
		if p, ok := raw["pattern-inside"].(string); ok {
			return p
		}
	case hasKey(raw, "pattern-not"):
		if p, ok := raw["pattern-not"].(string); ok {
			return "(?!" + p + ")"
		}
	}

	if list, ok := raw["patterns"].([]interface{}); ok {
		if p := firstPatternInList(list, true); p != "" {
			return p
		}
	}
	if list, ok := raw["rules"].([]interface{}); ok {
		if p := firstPatternInList(list, false); p != "" {
			return p
		}
	}
	return ""
}

// firstPatternInList finds the first string pattern inside a list of rule
// fragments, descending one nesting level when allowed.
func firstPatternInList(list []interface{}, nested bool) string {
	for _, entry := range list {
		fragment, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if p, ok := fragment["pattern"].(string); ok {
			return p
		}
		if !nested {
			continue
		}
		if inner, ok := fragment["patterns"].([]interface{}); ok {
			for _, nestedEntry := range inner {
				if nestedFragment, ok := nestedEntry.(map[string]interface{}); ok {
					if p, ok := nestedFragment["pattern"].(string); ok {
						return p
					}
				}
			}
		}
	}
	return ""
}

// placeholderPattern derives a comment-like pattern from metadata or the rule
// id so rules without an extractable pattern are still recorded.
func placeholderPattern(raw map[string]interface{}, id string) string {
	if metadata, ok := raw["metadata"].(map[string]interface{}); ok {
		if cwe, ok := metadata["cwe"]; ok {
			return fmt.Sprintf("# CWE-%v", cwe)
		}
		if owasp, ok := metadata["owasp"]; ok {
			return fmt.Sprintf("# OWASP-%v", owasp)
		}
	}
	return "# " + id
}

// ConvertFile parses one YAML rule file and returns its rules bucketed by
// language. It tolerates a top-level rules list, a single inline rule, a dict
// of named sub-documents, and a bare list of rules.
func ConvertFile(path string, logger hclog.Logger) types.RuleSet {
	result := types.RuleSet{}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read rule file", "path", path, "error", err)
		return result
	}

	var content interface{}
	if err := yaml.Unmarshal(data, &content); err != nil {
		logger.Warn("failed to parse rule file", "path", path, "error", err)
		return result
	}

	var rawRules []interface{}
	switch doc := content.(type) {
	case map[string]interface{}:
		if list, ok := doc["rules"].([]interface{}); ok {
			rawRules = list
		} else if hasKey(doc, "id") && hasKey(doc, "pattern") {
			rawRules = []interface{}{doc}
		} else {
			// Named sub-documents, in key order for deterministic output.
			keys := make([]string, 0, len(doc))
			for key := range doc {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				sub, ok := doc[key].(map[string]interface{})
				if !ok {
					continue
				}
				if list, ok := sub["rules"].([]interface{}); ok {
					rawRules = append(rawRules, list...)
				} else if hasKey(sub, "pattern") {
					rawRules = append(rawRules, sub)
				}
			}
		}
	case []interface{}:
		rawRules = doc
	case nil:
		logger.Warn("rule file is empty", "path", path)
		return result
	}

	if len(rawRules) == 0 {
		logger.Warn("no rules found in file", "path", path)
		return result
	}

	for _, entry := range rawRules {
		raw, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		rule, buckets, ok := ConvertRule(raw)
		if !ok {
			logger.Warn("skipping untranslatable rule", "path", path)
			continue
		}
		for _, bucket := range buckets {
			result[bucket] = append(result[bucket], rule)
		}
	}
	return result
}

// ConvertDir converts every YAML file under a directory, recursively.
func ConvertDir(dir string, logger hclog.Logger) types.RuleSet {
	result := types.RuleSet{}

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("skipping unreadable path during rule import", "path", path, "error", err)
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		mergeRuleSets(result, ConvertFile(path, logger))
		return nil
	})
	if err != nil {
		logger.Warn("rule directory walk failed", "dir", dir, "error", err)
	}

	logger.Debug("converted rule directory", "dir", dir, "rules", result.TotalRules())
	return result
}

func mergeRuleSets(dst, src types.RuleSet) {
	for lang, rules := range src {
		dst[lang] = append(dst[lang], rules...)
	}
}

func languageList(raw map[string]interface{}) []string {
	list, ok := raw["languages"].([]interface{})
	if !ok {
		return nil
	}
	languages := make([]string, 0, len(list))
	for _, entry := range list {
		if lang, ok := entry.(string); ok && lang != "" {
			languages = append(languages, lang)
		}
	}
	return languages
}

func hasKey(raw map[string]interface{}, key string) bool {
	_, ok := raw[key]
	return ok
}

func stringField(raw map[string]interface{}, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
