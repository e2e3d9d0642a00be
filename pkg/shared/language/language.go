// Package language maps files to the lowercase language bucket names used by
// the rule repository and scan statistics.
package language

import (
	"path/filepath"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Unknown is the bucket for files whose language cannot be determined.
const Unknown = "unknown"

// Common is the bucket for language-agnostic rules.
const Common = "common"

// aliases rewrites enry's linguist names to the bucket names the rule
// repository historically uses.
var aliases = map[string]string{
	"go":          "golang",
	"shell":       "bash",
	"batchfile":   "batch",
	"c++":         "c++",
	"c#":          "c#",
	"objective-c": "objective-c",
	"vue":         "javascript",
}

// DetectFile returns the bucket name for a file, using its extension first
// and falling back to content-based detection when the extension is
// ambiguous. Content may be nil.
func DetectFile(path string, content []byte) string {
	lang, safe := enry.GetLanguageByExtension(filepath.Base(path))
	if !safe && len(content) > 0 {
		if detected := enry.GetLanguage(filepath.Base(path), content); detected != "" {
			lang = detected
		}
	}
	if lang == "" {
		lang, _ = enry.GetLanguageByFilename(filepath.Base(path))
	}
	return Normalize(lang)
}

// Normalize lowercases a language name and applies bucket aliases. An empty
// name normalizes to Unknown.
func Normalize(name string) string {
	if name == "" {
		return Unknown
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return Unknown
	}
	if alias, ok := aliases[lower]; ok {
		return alias
	}
	return lower
}

// IsBinary reports whether the given content chunk looks like binary data.
func IsBinary(chunk []byte) bool {
	return enry.IsBinary(chunk)
}
