package markdown

import (
	"html"
	"strings"
)

// HTML writes the document as markup for the web client. All text is
// escaped; bold spans become styled spans.
func (d Document) HTML() string {
	var b strings.Builder
	b.WriteString(`<div class="space-y-3 text-slate-700 leading-relaxed">`)
	for _, blk := range d.Blocks {
		switch blk.Kind {
		case BlockHeader:
			if blk.Level == 3 {
				b.WriteString(`<h3 class="text-lg font-bold text-primary mt-4 mb-2">`)
				b.WriteString(html.EscapeString(blk.Text))
				b.WriteString(`</h3>`)
			} else {
				b.WriteString(`<h2 class="text-xl font-bold text-slate-800 mt-6 mb-3 border-b pb-1">`)
				b.WriteString(html.EscapeString(blk.Text))
				b.WriteString(`</h2>`)
			}
		case BlockListItem:
			b.WriteString(`<div class="flex items-start gap-2 ml-2"><span class="text-primary mt-1.5">•</span><span>`)
			writeInlineHTML(&b, blk.Inline)
			b.WriteString(`</span></div>`)
		case BlockSpacer:
			b.WriteString(`<div class="h-2"></div>`)
		default:
			b.WriteString(`<p>`)
			writeInlineHTML(&b, blk.Inline)
			b.WriteString(`</p>`)
		}
	}
	b.WriteString(`</div>`)
	return b.String()
}

func writeInlineHTML(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		if s.Kind == SpanBold {
			b.WriteString(`<span class="font-bold text-slate-900">`)
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString(`</span>`)
			continue
		}
		b.WriteString(html.EscapeString(s.Text))
	}
}

// PlainText drops all styling and returns one line per block.
func (d Document) PlainText() string {
	lines := make([]string, len(d.Blocks))
	for i, blk := range d.Blocks {
		switch blk.Kind {
		case BlockHeader:
			lines[i] = blk.Text
		case BlockListItem:
			lines[i] = "• " + inlineText(blk.Inline)
		case BlockSpacer:
			lines[i] = ""
		default:
			lines[i] = inlineText(blk.Inline)
		}
	}
	return strings.Join(lines, "\n")
}

func inlineText(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
