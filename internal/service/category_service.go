package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/manualhub/manual-api/internal/dto"
	"github.com/manualhub/manual-api/internal/models"
	"github.com/manualhub/manual-api/internal/repository"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

// CategoryService manages taxonomy: categories and tags. Writes require a
// privileged role; reads are open to any authenticated caller.
type CategoryService struct {
	categories categoryStore
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewCategoryService constructs the service.
func NewCategoryService(categories categoryStore, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{categories: categories, validator: validate, logger: logger}
}

// ListCategories returns every category.
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// CreateCategory creates a category with a derived slug.
func (s *CategoryService) CreateCategory(ctx context.Context, req dto.UpsertCategoryRequest, actor *models.Claims) (*models.Category, error) {
	if err := s.authorizeWrite(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	category := &models.Category{Name: req.Name, Slug: slugify(req.Name)}
	if category.Slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name must contain at least one alphanumeric character")
	}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("category %q already exists", category.Slug))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

// UpdateCategory renames a category.
func (s *CategoryService) UpdateCategory(ctx context.Context, id string, req dto.UpsertCategoryRequest, actor *models.Claims) (*models.Category, error) {
	if err := s.authorizeWrite(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	category.Name = req.Name
	category.Slug = slugify(req.Name)
	if err := s.categories.UpdateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("category %q already exists", category.Slug))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update category")
	}
	return category, nil
}

// DeleteCategory removes a category; manuals referencing it are detached,
// not deleted.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string, actor *models.Claims) error {
	if err := s.authorizeWrite(actor); err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete category")
	}
	return nil
}

// ListTags returns every tag.
func (s *CategoryService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.categories.ListTags(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tags")
	}
	return tags, nil
}

// CreateTag creates a tag with a derived slug.
func (s *CategoryService) CreateTag(ctx context.Context, req dto.UpsertTagRequest, actor *models.Claims) (*models.Tag, error) {
	if err := s.authorizeWrite(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	tag := &models.Tag{Name: req.Name, Slug: slugify(req.Name)}
	if tag.Slug == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name must contain at least one alphanumeric character")
	}
	if err := s.categories.CreateTag(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("tag %q already exists", tag.Slug))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create tag")
	}
	return tag, nil
}

// UpdateTag renames a tag.
func (s *CategoryService) UpdateTag(ctx context.Context, id string, req dto.UpsertTagRequest, actor *models.Claims) (*models.Tag, error) {
	if err := s.authorizeWrite(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	tag, err := s.categories.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tag")
	}
	tag.Name = req.Name
	tag.Slug = slugify(req.Name)
	if err := s.categories.UpdateTag(ctx, tag); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("tag %q already exists", tag.Slug))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update tag")
	}
	return tag, nil
}

// DeleteTag removes a tag and its manual associations.
func (s *CategoryService) DeleteTag(ctx context.Context, id string, actor *models.Claims) error {
	if err := s.authorizeWrite(actor); err != nil {
		return err
	}
	if err := s.categories.DeleteTag(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete tag")
	}
	return nil
}

func (s *CategoryService) authorizeWrite(actor *models.Claims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if _, ok := privilegedEditorRoles[actor.Role]; !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "role may not manage taxonomy")
	}
	return nil
}
