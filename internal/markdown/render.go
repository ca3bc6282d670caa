package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const boldMarker = "**"

// Render converts content into a Document, one block per line.
//
// Rules are tried in a fixed order and the first match wins: "### " and
// "## " headers, "- " or "* " list items (after leading whitespace), blank
// lines, then paragraphs. Render never fails; unrecognised input becomes a
// paragraph.
func Render(content string) Document {
	lines := strings.Split(content, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, renderLine(strings.TrimSuffix(line, "\r")))
	}
	return Document{Blocks: blocks}
}

func renderLine(line string) Block {
	if rest, ok := strings.CutPrefix(line, "### "); ok {
		return Block{Kind: BlockHeader, Level: 3, Text: rest}
	}
	if rest, ok := strings.CutPrefix(line, "## "); ok {
		return Block{Kind: BlockHeader, Level: 2, Text: rest}
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
		return Block{Kind: BlockListItem, Inline: ParseInline(stripListMarker(line))}
	}
	if trimmed == "" {
		return Block{Kind: BlockSpacer}
	}
	return Block{Kind: BlockParagraph, Inline: ParseInline(line)}
}

// stripListMarker removes leading whitespace, one '-' or '*', and the run of
// whitespace after it.
func stripListMarker(line string) string {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	if rest == "" || (rest[0] != '-' && rest[0] != '*') {
		return line
	}
	after := rest[1:]
	r, _ := utf8.DecodeRuneInString(after)
	if !unicode.IsSpace(r) {
		return line
	}
	return strings.TrimLeftFunc(after, unicode.IsSpace)
}

// ParseInline splits text into plain and bold spans.
//
// Each "**text**" pair becomes a bold span, matched left to right and
// non-overlapping, with the closing marker being the first "**" after the
// opener. An opener without a closer is kept as literal text. The scan is a
// single forward pass.
func ParseInline(text string) []Span {
	var spans []Span
	plainStart := 0
	pos := 0
	for pos < len(text) {
		open := strings.Index(text[pos:], boldMarker)
		if open < 0 {
			break
		}
		open += pos
		inner := open + len(boldMarker)
		closeAt := strings.Index(text[inner:], boldMarker)
		if closeAt < 0 {
			break
		}
		closeAt += inner

		if open > plainStart {
			spans = append(spans, Plain(text[plainStart:open]))
		}
		spans = append(spans, Bold(text[inner:closeAt]))
		pos = closeAt + len(boldMarker)
		plainStart = pos
	}
	if plainStart < len(text) {
		spans = append(spans, Plain(text[plainStart:]))
	}
	return spans
}
