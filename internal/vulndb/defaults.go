package vulndb

import "github.com/codescan-sec/codescan/pkg/shared/types"

// defaultRuleSet is written on first use so scans produce findings before any
// rules have been imported.
func defaultRuleSet() types.RuleSet {
	return types.RuleSet{
		"common": {
			{
				ID:          "common-1",
				Name:        "Hardcoded credentials",
				Pattern:     "password|secret|token|api_key|apikey",
				Description: "Detects hardcoded credentials in source code",
				Severity:    types.SeverityHigh,
				Languages:   []string{"*"},
				Source:      types.RuleSourceBuiltin,
			},
			{
				ID:          "common-2",
				Name:        "Potential SQL injection",
				Pattern:     "execute|query|select.*from.*where",
				Description: "Detects potential SQL injection vulnerabilities",
				Severity:    types.SeverityCritical,
				Languages:   []string{"*"},
				Source:      types.RuleSourceBuiltin,
			},
			{
				ID:          "common-3",
				Name:        "Unhandled exception",
				Pattern:     "try|catch|except",
				Description: "Detects exception handling that may swallow errors",
				Severity:    types.SeverityMedium,
				Languages:   []string{"*"},
				Source:      types.RuleSourceBuiltin,
			},
		},
		"python": {
			{
				ID:          "python-1",
				Name:        "Unsafe pickle usage",
				Pattern:     "pickle\\.loads|pickle\\.load",
				Description: "Detects deserialization of untrusted data via pickle",
				Severity:    types.SeverityHigh,
				Languages:   []string{"python"},
				Source:      types.RuleSourceBuiltin,
			},
			{
				ID:          "python-2",
				Name:        "Command injection via os.system",
				Pattern:     "os\\.system|subprocess\\.call|eval\\(",
				Description: "Detects potential command injection",
				Severity:    types.SeverityCritical,
				Languages:   []string{"python"},
				Source:      types.RuleSourceBuiltin,
			},
		},
		"javascript": {
			{
				ID:          "javascript-1",
				Name:        "Unsafe eval usage",
				Pattern:     "eval\\(|setTimeout\\(.*\\)|setInterval\\(.*\\)",
				Description: "Detects unsafe dynamic code evaluation",
				Severity:    types.SeverityHigh,
				Languages:   []string{"javascript"},
				Source:      types.RuleSourceBuiltin,
			},
			{
				ID:          "javascript-2",
				Name:        "Potential XSS",
				Pattern:     "innerHTML|document\\.write|\\$\\(.*\\)\\.html\\(",
				Description: "Detects DOM sinks prone to cross-site scripting",
				Severity:    types.SeverityCritical,
				Languages:   []string{"javascript"},
				Source:      types.RuleSourceBuiltin,
			},
		},
		"java": {
			{
				ID:          "java-1",
				Name:        "Unsafe deserialization",
				Pattern:     "ObjectInputStream|readObject",
				Description: "Detects deserialization of untrusted object streams",
				Severity:    types.SeverityHigh,
				Languages:   []string{"java"},
				Source:      types.RuleSourceBuiltin,
			},
		},
	}
}
