package dto

import "encoding/json"

// BlockPayload is one block inside a version snapshot request. Order is
// taken from list position; client-sent order values are normalised.
type BlockPayload struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// CreateVersionRequest persists a full snapshot as the manual's next version.
type CreateVersionRequest struct {
	Changelog string         `json:"changelog" validate:"max=2000"`
	Blocks    []BlockPayload `json:"blocks"`
}

// VersionPreview is the fully decoded, renderable snapshot of one version.
type VersionPreview struct {
	ManualID      string         `json:"manual_id"`
	ManualTitle   string         `json:"manual_title"`
	VersionID     string         `json:"version_id"`
	VersionNumber int            `json:"version_number"`
	Changelog     string         `json:"changelog"`
	IsPublished   bool           `json:"is_published"`
	Blocks        []PreviewBlock `json:"blocks"`
}

// PreviewBlock is a block resolved to its effective variant with a validated
// payload.
type PreviewBlock struct {
	ID    string      `json:"id"`
	Order int         `json:"order"`
	Type  string      `json:"type"`
	Data  interface{} `json:"data"`
}
