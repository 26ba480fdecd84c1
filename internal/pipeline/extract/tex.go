package extract

import (
	"os"
	"strings"

	"github.com/akolanti/StreamAPI/internal/domain/docModel"
)

// extractTex strips LaTeX markup and keeps body text. Comments go entirely,
// commands keep their brace arguments (the argument is usually prose), and
// math environments are left as-is since they still embed searchable terms.
func extractTex(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("failed reading tex file", "path", path, "error", err.Error())
		return "", &docModel.ExtractionError{FileType: docModel.TEX, Err: err}
	}
	return stripTex(string(raw)), nil
}

func stripTex(src string) string {
	var out strings.Builder
	i := 0
	for i < len(src) {
		c := src[i]
		switch c {
		case '%':
			//comment runs to end of line
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case '\\':
			i++
			if i < len(src) && !isTexLetter(src[i]) {
				// escaped character like \% or \& keeps its literal
				out.WriteByte(src[i])
				i++
				continue
			}
			start := i
			for i < len(src) && isTexLetter(src[i]) {
				i++
			}
			name := src[start:i]
			//optional arguments carry layout hints, not prose
			for i < len(src) && src[i] == '[' {
				for i < len(src) && src[i] != ']' {
					i++
				}
				if i < len(src) {
					i++
				}
			}
			if dropsArgument(name) {
				for i < len(src) && src[i] == '{' {
					depth := 0
					for i < len(src) {
						if src[i] == '{' {
							depth++
						} else if src[i] == '}' {
							depth--
							if depth == 0 {
								i++
								break
							}
						}
						i++
					}
				}
			}
		case '{', '}', '~', '$':
			if c == '~' {
				out.WriteByte(' ')
			}
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return collapseBlankLines(out.String())
}

func isTexLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// commands whose brace argument is machinery rather than prose
func dropsArgument(name string) bool {
	switch name {
	case "documentclass", "usepackage", "begin", "end", "label", "ref",
		"cite", "bibliography", "bibliographystyle", "input", "include",
		"includegraphics", "newcommand", "renewcommand", "pagestyle",
		"vspace", "hspace":
		return true
	}
	return false
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if !blank && len(kept) > 0 {
				kept = append(kept, "")
			}
			blank = true
			continue
		}
		blank = false
		kept = append(kept, trimmed)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
