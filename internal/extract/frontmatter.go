package extract

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const fmDelim = "---"

// SplitFrontmatter separates YAML front-matter (between leading ---
// delimiters) from the document body. Absent or malformed front-matter
// yields a nil map and the whole input as body, never an error.
func SplitFrontmatter(data []byte) (map[string]any, string) {
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(fmDelim)) {
		return nil, string(data)
	}

	rest := trimmed[len(fmDelim):]
	idx := closingDelimIndex(rest)
	if idx < 0 {
		// No closing delimiter; treat everything as body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(fmDelim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}

	return fm, body
}

// closingDelimIndex locates a newline followed by a line holding nothing but
// the --- delimiter (an optional trailing \r aside). Lines like "----" or
// "--- trailing text" do not close the block.
func closingDelimIndex(b []byte) int {
	off := 0
	for {
		i := bytes.Index(b[off:], []byte("\n"+fmDelim))
		if i < 0 {
			return -1
		}
		pos := off + i
		tail := b[pos+1+len(fmDelim):]
		if len(tail) == 0 || tail[0] == '\n' || (tail[0] == '\r' && (len(tail) == 1 || tail[1] == '\n')) {
			return pos
		}
		off = pos + 1
	}
}
