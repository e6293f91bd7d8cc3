package dto

// UpsertCategoryRequest creates or renames a category.
type UpsertCategoryRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// UpsertTagRequest creates or renames a tag.
type UpsertTagRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
