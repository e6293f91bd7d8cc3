package blocks

import "encoding/json"

// The storage schema predating the full variant set only knew a coarse tag
// set. Rows written by that schema carry the true variant in the payload's
// originalType key. New rows store the full variant set first-class; this
// codec exists so old rows keep resolving and so exports to the old schema
// stay readable by legacy consumers.

// legacyTypes is the coarse persisted tag set of the old schema.
var legacyTypes = map[Type]struct{}{
	TypeText:    {},
	TypeImage:   {},
	TypeList:    {},
	TypeTable:   {},
	TypeDiagram: {},
	TypeTabs:    {},
}

// legacyNarrowing maps each richer variant onto the coarse tag it degrades
// to. A reader unaware of originalType still gets a valid rendering under
// the coarse tag.
var legacyNarrowing = map[Type]Type{
	TypeChecklist: TypeList,
	TypeVideo:     TypeText,
	TypeCode:      TypeText,
	TypeQuote:     TypeText,
	TypeDivider:   TypeText,
}

const originalTypeKey = "originalType"

// EncodeLegacy converts a block to the coarse tag set. Variants missing from
// the legacy set are narrowed and the true variant is recorded inside the
// payload as originalType.
func EncodeLegacy(b Block) (Block, error) {
	if _, ok := legacyTypes[b.Type]; ok {
		return b, nil
	}
	coarse, ok := legacyNarrowing[b.Type]
	if !ok {
		coarse = TypeText
	}

	payload := map[string]json.RawMessage{}
	if len(b.Data) > 0 {
		if err := json.Unmarshal(b.Data, &payload); err != nil {
			return Block{}, err
		}
	}
	tag, err := json.Marshal(string(b.Type))
	if err != nil {
		return Block{}, err
	}
	payload[originalTypeKey] = tag

	raw, err := json.Marshal(payload)
	if err != nil {
		return Block{}, err
	}

	out := b
	out.Type = coarse
	out.Data = raw
	return out, nil
}

// ResolveType returns the effective variant of a persisted block, preferring
// the payload's originalType over the stored tag.
func ResolveType(storedType Type, data json.RawMessage) Type {
	if len(data) > 0 {
		var probe struct {
			OriginalType Type `json:"originalType"`
		}
		if err := json.Unmarshal(data, &probe); err == nil && probe.OriginalType.IsValid() {
			return probe.OriginalType
		}
	}
	return storedType
}

// Decode resolves a persisted block to its effective variant and validated
// payload.
func Decode(storedType Type, data json.RawMessage) (Type, interface{}, error) {
	effective := ResolveType(storedType, data)
	payload, err := DecodeData(effective, data)
	if err != nil {
		return effective, nil, err
	}
	return effective, payload, nil
}
