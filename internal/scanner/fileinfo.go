package scanner

import (
	"regexp"
	"strings"
)

// FileInfo is a deterministic structural summary of one source file, attached
// to single-file scan results.
type FileInfo struct {
	Language  string   `json:"language"`
	Imports   []string `json:"imports"`
	Classes   []string `json:"classes"`
	Functions []string `json:"functions"`
	Summary   string   `json:"file_summary"`
}

var (
	pythonImportRe   = regexp.MustCompile(`(?m)^(?:from\s+[\w.]+\s+import\s+.+|import\s+.+)`)
	pythonClassRe    = regexp.MustCompile(`(?m)^\s*class\s+(\w+)`)
	pythonFuncRe     = regexp.MustCompile(`(?m)^\s*def\s+(\w+)`)
	pythonDocRe      = regexp.MustCompile(`(?s)^(?:"""|''')(.*?)(?:"""|''')`)
	jsImportRe       = regexp.MustCompile(`(?m)^(?:import\s+.+?from\s+.+|const\s+.+?\s*=\s*require\(.+?\))`)
	jsClassRe        = regexp.MustCompile(`(?m)(?:^|\s)class\s+(\w+)`)
	jsFuncRe         = regexp.MustCompile(`(?m)(?:^|\s)function\s+(\w+)|const\s+(\w+)\s*=\s*(?:function|\()`)
	javaImportRe     = regexp.MustCompile(`(?m)^import\s+.+?;`)
	javaClassRe      = regexp.MustCompile(`(?m)(?:public|private|protected)?\s+class\s+(\w+)`)
	javaFuncRe       = regexp.MustCompile(`(?m)(?:public|private|protected)?\s+\w+\s+(\w+)\s*\(`)
	blockCommentDoc  = regexp.MustCompile(`(?s)^/\*\*(.*?)\*/`)
	summaryLineLimit = 10
)

// ExtractFileInfo pulls imports, type and function names and a leading doc
// comment out of file content. Languages without dedicated extraction rules
// still get a summary built from the first lines.
func ExtractFileInfo(lang, content string) FileInfo {
	info := FileInfo{
		Language:  lang,
		Imports:   []string{},
		Classes:   []string{},
		Functions: []string{},
	}

	switch lang {
	case "python":
		info.Imports = pythonImportRe.FindAllString(content, -1)
		info.Classes = firstGroups(pythonClassRe, content)
		info.Functions = firstGroups(pythonFuncRe, content)
	case "javascript", "typescript":
		info.Imports = jsImportRe.FindAllString(content, -1)
		info.Classes = firstGroups(jsClassRe, content)
		for _, match := range jsFuncRe.FindAllStringSubmatch(content, -1) {
			name := match[1]
			if name == "" {
				name = match[2]
			}
			if name != "" {
				info.Functions = append(info.Functions, name)
			}
		}
	case "java":
		info.Imports = javaImportRe.FindAllString(content, -1)
		info.Classes = firstGroups(javaClassRe, content)
		info.Functions = firstGroups(javaFuncRe, content)
	}

	if doc := extractDocComment(lang, content); doc != "" {
		info.Summary = doc
	} else {
		lines := strings.Split(content, "\n")
		if len(lines) > summaryLineLimit {
			lines = lines[:summaryLineLimit]
		}
		info.Summary = strings.Join(lines, "\n")
	}

	return info
}

func firstGroups(re *regexp.Regexp, content string) []string {
	matches := re.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if match[1] != "" {
			names = append(names, match[1])
		}
	}
	return names
}

func extractDocComment(lang, content string) string {
	switch lang {
	case "python":
		if match := pythonDocRe.FindStringSubmatch(content); match != nil {
			return strings.TrimSpace(match[1])
		}
	case "javascript", "typescript", "java":
		if match := blockCommentDoc.FindStringSubmatch(content); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}
