// Package blocks implements the content-block document model: the closed
// variant set, per-variant payload schemas, ordering operations on draft
// block lists, and the legacy coarse-type codec.
package blocks

import (
	"encoding/json"
	"fmt"
)

// Type is the closed set of content-block variants.
type Type string

const (
	TypeText      Type = "TEXT"
	TypeImage     Type = "IMAGE"
	TypeList      Type = "LIST"
	TypeChecklist Type = "CHECKLIST"
	TypeTable     Type = "TABLE"
	TypeVideo     Type = "VIDEO"
	TypeCode      Type = "CODE"
	TypeQuote     Type = "QUOTE"
	TypeDivider   Type = "DIVIDER"
	TypeDiagram   Type = "DIAGRAM"
	TypeTabs      Type = "TABS"
)

// Types lists every variant in a stable order.
var Types = []Type{
	TypeText, TypeImage, TypeList, TypeChecklist, TypeTable, TypeVideo,
	TypeCode, TypeQuote, TypeDivider, TypeDiagram, TypeTabs,
}

// IsValid reports whether t is a known variant.
func (t Type) IsValid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Block is one unit of draft content during an editing session. The list it
// belongs to is persisted wholesale as a new version snapshot.
type Block struct {
	ID    string          `json:"id"`
	Type  Type            `json:"type"`
	Data  json.RawMessage `json:"data"`
	Order int             `json:"order"`
}

// Variant payload schemas. Each persisted Data payload decodes into exactly
// one of these.

type TextData struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type ImageData struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
}

type ListData struct {
	Title    string   `json:"title"`
	ListType string   `json:"listType"`
	Items    []string `json:"items"`
}

type ChecklistData struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// TableData carries a comma/newline-delimited grid.
type TableData struct {
	Title   string `json:"title"`
	CSVData string `json:"csvData"`
}

type VideoData struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type CodeData struct {
	Title    string `json:"title"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

type QuoteData struct {
	Quote  string `json:"quote"`
	Author string `json:"author"`
}

type DividerData struct{}

type DiagramData struct {
	Title       string `json:"title"`
	DiagramType string `json:"diagramType"`
	Data        string `json:"data"`
}

type TabsData struct {
	Tabs []Tab `json:"tabs"`
}

type Tab struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DefaultData returns the initial payload for a freshly appended block of the
// given variant.
func DefaultData(t Type) json.RawMessage {
	var payload interface{}
	switch t {
	case TypeText:
		payload = TextData{}
	case TypeImage:
		payload = ImageData{}
	case TypeList:
		payload = ListData{ListType: "bullet", Items: []string{}}
	case TypeChecklist:
		payload = ChecklistData{Items: []string{}}
	case TypeTable:
		payload = TableData{}
	case TypeVideo:
		payload = VideoData{}
	case TypeCode:
		payload = CodeData{Language: "javascript"}
	case TypeQuote:
		payload = QuoteData{}
	case TypeDiagram:
		payload = DiagramData{}
	case TypeTabs:
		payload = TabsData{Tabs: []Tab{}}
	default:
		payload = DividerData{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// DecodeData validates and decodes a payload against the variant's schema.
// Unknown keys are tolerated (payloads may carry the originalType shim), but
// mistyped fields fail.
func DecodeData(t Type, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	var (
		dest interface{}
		err  error
	)
	switch t {
	case TypeText:
		v := TextData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeImage:
		v := ImageData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeList:
		v := ListData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeChecklist:
		v := ChecklistData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeTable:
		v := TableData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeVideo:
		v := VideoData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeCode:
		v := CodeData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeQuote:
		v := QuoteData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeDivider:
		v := DividerData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeDiagram:
		v := DiagramData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	case TypeTabs:
		v := TabsData{}
		err = json.Unmarshal(raw, &v)
		dest = v
	default:
		return nil, fmt.Errorf("unknown block type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return dest, nil
}
