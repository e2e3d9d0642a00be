package scanner

import (
	"bytes"
	"path/filepath"
	"sync"

	"github.com/boyter/scc/v3/processor"
)

var sccInitOnce sync.Once

// CountLines counts the lines of a file, using the scc processor when it
// recognizes the file type and a plain newline count otherwise.
func CountLines(path string, content []byte) int {
	if len(content) == 0 {
		return 0
	}

	sccInitOnce.Do(processor.ProcessConstants)

	sccLangs, _ := processor.DetectLanguage(filepath.Base(path))
	if len(sccLangs) > 0 {
		job := &processor.FileJob{
			Filename: filepath.Base(path),
			Location: path,
			Language: sccLangs[0],
			Content:  content,
			Bytes:    int64(len(content)),
		}
		processor.CountStats(job)
		if job.Lines > 0 {
			return int(job.Lines)
		}
	}

	lines := bytes.Count(content, []byte("\n"))
	if content[len(content)-1] != '\n' {
		lines++
	}
	return lines
}
