// Package markdown renders the small Markdown dialect produced by the study
// notes generator: level 2/3 headers, bullet lists, bold spans, blank lines
// and plain paragraphs.
package markdown

import (
	"encoding"
	"fmt"
)

// BlockKind identifies the type of a rendered line.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeader
	BlockListItem
	BlockSpacer
)

func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeader:
		return "header"
	case BlockListItem:
		return "list_item"
	case BlockSpacer:
		return "spacer"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name so JSON clients see "header", not 1.
func (k BlockKind) MarshalText() ([]byte, error) {
	s := k.String()
	if s == "unknown" {
		return nil, fmt.Errorf("unknown block kind %d", int(k))
	}
	return []byte(s), nil
}

// SpanKind identifies the style of an inline run.
type SpanKind int

const (
	SpanPlain SpanKind = iota
	SpanBold
)

func (k SpanKind) String() string {
	if k == SpanBold {
		return "bold"
	}
	return "plain"
}

func (k SpanKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

var (
	_ encoding.TextMarshaler = BlockKind(0)
	_ encoding.TextMarshaler = SpanKind(0)
)

// Span is a styled or plain run of text inside a block.
type Span struct {
	Kind SpanKind `json:"kind"`
	Text string   `json:"text"`
}

// Plain returns a plain text span.
func Plain(text string) Span { return Span{Kind: SpanPlain, Text: text} }

// Bold returns a bold span.
func Bold(text string) Span { return Span{Kind: SpanBold, Text: text} }

// Block is the rendering of exactly one input line.
//
// Level and Text are set for headers; Inline is set for list items and
// paragraphs. Spacers carry no content.
type Block struct {
	Kind   BlockKind `json:"kind"`
	Level  int       `json:"level,omitempty"`
	Text   string    `json:"text,omitempty"`
	Inline []Span    `json:"inline,omitempty"`
}

// Document is the ordered list of blocks for one render call.
type Document struct {
	Blocks []Block `json:"blocks"`
}

// Len returns the number of blocks, which always equals the number of
// input lines.
func (d Document) Len() int {
	return len(d.Blocks)
}
