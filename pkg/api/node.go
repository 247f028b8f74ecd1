package api

import (
	"encoding/json"
	"fmt"
)

// NodeKind names the variant of a render node.
type NodeKind string

const (
	KindBanner        NodeKind = "banner"
	KindParagraph     NodeKind = "paragraph"
	KindUnorderedList NodeKind = "unordered_list"
	KindOrderedList   NodeKind = "ordered_list"
	KindTable         NodeKind = "table"
)

// Node is one block-level unit of a rendered message. The set of
// implementations is closed: Banner, Paragraph, UnorderedList, OrderedList
// and Table.
type Node interface {
	Kind() NodeKind
	node()
}

// Style is the emphasis carried by an inline span.
type Style string

const (
	StylePlain  Style = "plain"
	StyleBold   Style = "bold"
	StyleItalic Style = "italic"
)

// Span is a run of inline text with a single emphasis style.
type Span struct {
	Style Style  `json:"style"`
	Text  string `json:"text"`
}

func Plain(s string) Span  { return Span{Style: StylePlain, Text: s} }
func Bold(s string) Span   { return Span{Style: StyleBold, Text: s} }
func Italic(s string) Span { return Span{Style: StyleItalic, Text: s} }

// Cell is the formatted content of one table data cell.
type Cell []Span

// Banner is the confirmation callout. Title and Body are never inline formatted.
type Banner struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type Paragraph struct {
	Spans []Span `json:"spans"`
}

type UnorderedList struct {
	Items [][]Span `json:"items"`
}

type OrderedList struct {
	Items [][]Span `json:"items"`
}

// Table keeps header cells raw; data rows may be ragged.
type Table struct {
	Headers []string `json:"headers"`
	Rows    [][]Cell `json:"rows"`
}

func (Banner) Kind() NodeKind        { return KindBanner }
func (Paragraph) Kind() NodeKind     { return KindParagraph }
func (UnorderedList) Kind() NodeKind { return KindUnorderedList }
func (OrderedList) Kind() NodeKind   { return KindOrderedList }
func (Table) Kind() NodeKind         { return KindTable }

func (Banner) node()        {}
func (Paragraph) node()     {}
func (UnorderedList) node() {}
func (OrderedList) node()   {}
func (Table) node()         {}

func (n Banner) MarshalJSON() ([]byte, error) {
	type alias Banner
	return marshalTagged(n.Kind(), alias(n))
}

func (n Paragraph) MarshalJSON() ([]byte, error) {
	type alias Paragraph
	return marshalTagged(n.Kind(), alias(n))
}

func (n UnorderedList) MarshalJSON() ([]byte, error) {
	type alias UnorderedList
	return marshalTagged(n.Kind(), alias(n))
}

func (n OrderedList) MarshalJSON() ([]byte, error) {
	type alias OrderedList
	return marshalTagged(n.Kind(), alias(n))
}

func (n Table) MarshalJSON() ([]byte, error) {
	type alias Table
	return marshalTagged(n.Kind(), alias(n))
}

// marshalTagged encodes v as a JSON object and prepends a "type" member.
func marshalTagged(kind NodeKind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, _ := json.Marshal(kind)
	out := make([]byte, 0, len(body)+len(head)+9)
	out = append(out, `{"type":`...)
	out = append(out, head...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// DecodeNode decodes a single node produced by MarshalJSON.
func DecodeNode(b []byte) (Node, error) {
	var head struct {
		Type NodeKind `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case KindBanner:
		var n Banner
		err := json.Unmarshal(b, &n)
		return n, err
	case KindParagraph:
		var n Paragraph
		err := json.Unmarshal(b, &n)
		return n, err
	case KindUnorderedList:
		var n UnorderedList
		err := json.Unmarshal(b, &n)
		return n, err
	case KindOrderedList:
		var n OrderedList
		err := json.Unmarshal(b, &n)
		return n, err
	case KindTable:
		var n Table
		err := json.Unmarshal(b, &n)
		return n, err
	default:
		return nil, fmt.Errorf("unknown node type %q", head.Type)
	}
}

// DecodeNodes decodes a JSON array of nodes.
func DecodeNodes(b []byte) ([]Node, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(raws))
	for i, r := range raws {
		n, err := DecodeNode(r)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// SpansText concatenates span texts, dropping emphasis.
func SpansText(spans []Span) string {
	var n int
	for _, s := range spans {
		n += len(s.Text)
	}
	b := make([]byte, 0, n)
	for _, s := range spans {
		b = append(b, s.Text...)
	}
	return string(b)
}
