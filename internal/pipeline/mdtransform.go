package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	crlfOrCR           = regexp.MustCompile(`\r\n?`)
	multipleBlankLines = regexp.MustCompile(`\n{3,}`)
	leadingBlankLines  = regexp.MustCompile(`\A\n{2,}`)

	// ==text==, single line.
	highlightPattern = regexp.MustCompile(`==([^=\n]+?)==`)

	// %%hidden%%, possibly spanning lines.
	commentPattern = regexp.MustCompile(`(?s)%%.*?%%`)

	// [[Target]], [[Target#Heading]] or [[Target|Alias]].
	wikilinkPattern = regexp.MustCompile(`\[\[([^\[\]|\n]+)(?:\|([^\[\]\n]+))?\]\]`)

	spanPlaceholder = regexp.MustCompile(`\x{E000}(\d+)\x{E001}`)
)

// Private-use runes delimiting a protected code span index.
const (
	spanOpen  = "\uE000"
	spanClose = "\uE001"
)

// MarkdownPreprocessor rewrites a note before it is handed to pandoc.
type MarkdownPreprocessor interface {
	PreprocessMarkdown(ctx context.Context, content string) string
}

// NotePreprocessor rewrites note-app syntax into pandoc Markdown. Fenced code
// blocks and inline code spans are passed through untouched.
type NotePreprocessor struct{}

// PreprocessMarkdown returns content unchanged when ctx is already done.
func (p *NotePreprocessor) PreprocessMarkdown(ctx context.Context, content string) string {
	if ctx.Err() != nil {
		return content
	}

	content = normalizeLineEndings(content)
	return mapOutsideFences(content, func(prose string) string {
		prose, spans := protectCodeSpans(prose)
		prose = stripComments(prose)
		prose = convertHighlights(prose)
		prose = flattenWikilinks(prose)
		return compressBlankLines(restoreCodeSpans(prose, spans))
	})
}

func normalizeLineEndings(content string) string {
	return crlfOrCR.ReplaceAllString(content, "\n")
}

// compressBlankLines keeps at most one empty line between blocks. content
// may follow a line that already ended, so leading newlines are blank lines.
func compressBlankLines(content string) string {
	content = leadingBlankLines.ReplaceAllString(content, "\n")
	return multipleBlankLines.ReplaceAllString(content, "\n\n")
}

// stripComments removes %%comment%% blocks, which are private to the note.
func stripComments(content string) string {
	return commentPattern.ReplaceAllString(content, "")
}

// convertHighlights transforms ==text== into a pandoc bracketed span with the
// "mark" class, which the typst writer renders as a highlight.
func convertHighlights(content string) string {
	return highlightPattern.ReplaceAllString(content, "[$1]{.mark}")
}

// flattenWikilinks replaces links between notes with their display text; the
// target note is not part of the PDF. Embeds (![[...]]) are left alone.
func flattenWikilinks(content string) string {
	matches := wikilinkPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] > 0 && content[m[0]-1] == '!' {
			continue
		}
		b.WriteString(content[last:m[0]])
		b.WriteString(wikilinkText(content[m[2]:m[3]], subgroup(content, m, 2)))
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String()
}

func wikilinkText(target, alias string) string {
	if alias = strings.TrimSpace(alias); alias != "" {
		return alias
	}
	target = strings.TrimSpace(target)
	if note, heading, ok := strings.Cut(target, "#"); ok {
		if note == "" {
			return heading
		}
		return note + " > " + heading
	}
	return target
}

func subgroup(s string, m []int, n int) string {
	if m[2*n] < 0 {
		return ""
	}
	return s[m[2*n]:m[2*n+1]]
}

// protectCodeSpans replaces every backtick code span with a placeholder and
// returns the spans in order. A span closes on the next backtick run of the
// same length and never crosses a blank line; an unmatched run is literal.
func protectCodeSpans(s string) (string, []string) {
	if !strings.Contains(s, "`") {
		return s, nil
	}

	var (
		b     strings.Builder
		spans []string
	)
	for i := 0; i < len(s); {
		if s[i] != '`' {
			b.WriteByte(s[i])
			i++
			continue
		}
		n := backtickRun(s, i)
		end := closingRun(s, i+n, n)
		if end < 0 || strings.Contains(s[i:end], "\n\n") {
			b.WriteString(s[i : i+n])
			i += n
			continue
		}
		spans = append(spans, s[i:end+n])
		b.WriteString(spanOpen + strconv.Itoa(len(spans)-1) + spanClose)
		i = end + n
	}
	return b.String(), spans
}

func restoreCodeSpans(s string, spans []string) string {
	if len(spans) == 0 {
		return s
	}
	return spanPlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		idx, err := strconv.Atoi(spanPlaceholder.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(spans) {
			return m
		}
		return spans[idx]
	})
}

func backtickRun(s string, i int) int {
	n := 0
	for i+n < len(s) && s[i+n] == '`' {
		n++
	}
	return n
}

// closingRun returns the index of the next run of exactly n backticks at or
// after from, or -1.
func closingRun(s string, from, n int) int {
	for j := from; j < len(s); {
		if s[j] != '`' {
			j++
			continue
		}
		run := backtickRun(s, j)
		if run == n {
			return j
		}
		j += run
	}
	return -1
}

// mapOutsideFences applies fn to every run of lines outside ``` or ~~~
// fenced code blocks. An unclosed fence extends to the end of content.
func mapOutsideFences(content string, fn func(string) string) string {
	lines := strings.SplitAfter(content, "\n")

	var out, prose strings.Builder
	flush := func() {
		if prose.Len() > 0 {
			out.WriteString(fn(prose.String()))
			prose.Reset()
		}
	}

	fence := ""
	for _, line := range lines {
		if fence == "" {
			if marker := fenceMarker(line); marker != "" {
				flush()
				fence = marker
				out.WriteString(line)
				continue
			}
			prose.WriteString(line)
			continue
		}
		out.WriteString(line)
		if closesFence(line, fence) {
			fence = ""
		}
	}
	flush()
	return out.String()
}

// fenceMarker returns the opening run of backticks or tildes of a fence line.
func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return ""
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return ""
	}
	// Backtick fences cannot carry backticks in their info string.
	if c == '`' && strings.ContainsRune(trimmed[n:], '`') {
		return ""
	}
	return trimmed[:n]
}

func closesFence(line, fence string) bool {
	trimmed := strings.TrimSpace(line)
	if len(line)-len(strings.TrimLeft(line, " ")) > 3 {
		return false
	}
	return len(trimmed) >= len(fence) && strings.Trim(trimmed, fence[:1]) == ""
}
