package pipeline

import (
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// ImageRef is one inline image in a Markdown source.
type ImageRef struct {
	Alt   string
	Dest  string // as written, without angle brackets
	Title string // including its quotes, empty when absent
	Start int    // byte offset of "!["
	End   int    // byte offset just past ")"
}

// inlineImage matches ![alt](dest "title"). The AST decides which matches are
// real images; the regex only supplies byte offsets.
var inlineImage = regexp.MustCompile(`!\[((?:[^\[\]\\]|\\.)*)\]\(\s*(<[^>\n]*>|[^\s()]+)(\s+(?:"[^"\n]*"|'[^'\n]*'|\([^)\n]*\)))?\s*\)`)

// ScanImages returns the inline images of source in document order. Image
// syntax inside code blocks, code spans and raw HTML is ignored.
func ScanImages(source string) []ImageRef {
	src := []byte(source)
	doc := goldmark.New(goldmark.WithExtensions(extension.GFM)).Parser().Parse(text.NewReader(src))

	dests := make(map[string]int)
	var skip [][2]int
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Image:
			dests[string(node.Destination)]++
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				skip = append(skip, [2]int{seg.Start, seg.Stop})
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan, *ast.RawHTML:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					skip = append(skip, [2]int{t.Segment.Start, t.Segment.Stop})
				}
			}
			if raw, ok := n.(*ast.RawHTML); ok {
				for i := 0; i < raw.Segments.Len(); i++ {
					seg := raw.Segments.At(i)
					skip = append(skip, [2]int{seg.Start, seg.Stop})
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	var refs []ImageRef
	for _, m := range inlineImage.FindAllStringSubmatchIndex(source, -1) {
		start, end := m[0], m[1]
		if inRanges(start, skip) {
			continue
		}
		dest := strings.TrimSuffix(strings.TrimPrefix(source[m[4]:m[5]], "<"), ">")
		if dests[dest] == 0 {
			continue
		}
		ref := ImageRef{Alt: source[m[2]:m[3]], Dest: dest, Start: start, End: end}
		if m[6] >= 0 {
			ref.Title = strings.TrimSpace(source[m[6]:m[7]])
		}
		refs = append(refs, ref)
	}
	return refs
}

func inRanges(pos int, ranges [][2]int) bool {
	for _, r := range ranges {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// RewriteImages replaces each ref for which fn returns ok with the returned
// text. refs must come from ScanImages on the same source.
func RewriteImages(source string, refs []ImageRef, fn func(ImageRef) (string, bool)) string {
	sorted := append([]ImageRef(nil), refs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	b.Grow(len(source))
	last := 0
	for _, ref := range sorted {
		if ref.Start < last {
			continue
		}
		repl, ok := fn(ref)
		if !ok {
			continue
		}
		b.WriteString(source[last:ref.Start])
		b.WriteString(repl)
		last = ref.End
	}
	b.WriteString(source[last:])
	return b.String()
}

// FormatImage renders ![alt](dest "title") with dest in angle brackets so
// spaces survive.
func FormatImage(alt, dest, title string) string {
	out := "![" + alt + "](<" + dest + ">"
	if title != "" {
		out += " " + title
	}
	return out + ")"
}

// IsLocalPath reports whether an image destination refers to a local file.
func IsLocalPath(dest string) bool {
	if dest == "" {
		return false
	}

	// Skip URLs (http, https, file, data, protocol-relative)
	lower := strings.ToLower(dest)
	if strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(dest, "//") {
		return false
	}

	// Skip anchors
	return !strings.HasPrefix(dest, "#")
}

// ResolveLocal maps a local destination to an absolute path. Destinations
// starting with "/" are vault-rooted; others are relative to docDir. Percent
// escapes are decoded. ok is false when the result escapes root.
func ResolveLocal(dest, docDir, root string) (abs string, ok bool) {
	decoded, err := url.PathUnescape(dest)
	if err != nil {
		decoded = dest
	}
	decoded = filepath.FromSlash(decoded)

	if strings.HasPrefix(dest, "/") {
		abs = filepath.Join(root, decoded)
	} else {
		abs = filepath.Join(docDir, decoded)
	}
	if !isPathUnderDir(abs, root) {
		return "", false
	}
	return abs, true
}

// RootRelative returns abs as a "/"-prefixed slash path relative to root,
// the form typst resolves against --root.
func RootRelative(abs, root string) (string, bool) {
	if !isPathUnderDir(abs, root) {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(abs))
	if err != nil {
		return "", false
	}
	return "/" + filepath.ToSlash(rel), true
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	// Ensure dir ends with separator for correct prefix matching
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	// Path is under dir if it starts with dir/ or equals dir
	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}
