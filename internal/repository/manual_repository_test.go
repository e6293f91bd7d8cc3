package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualhub/manual-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func manualRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "title", "slug", "department", "category_id", "status", "created_by",
		"current_version_id", "published_version_id", "created_at", "updated_at",
	})
}

func TestManualRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO manuals").
		WithArgs(sqlmock.AnyArg(), "Guide", "guide", "Ops", nil, models.ManualStatusDraft, "u1",
			nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO manual_versions").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, "", "u1", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE manuals SET current_version_id").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	manual := &models.Manual{Title: "Guide", Slug: "guide", Department: "Ops", CreatedBy: "u1"}
	initial := &models.ManualVersion{CreatedBy: "u1"}
	require.NoError(t, repo.Create(context.Background(), manual, initial))
	assert.NotEmpty(t, manual.ID)
	assert.Equal(t, models.ManualStatusDraft, manual.Status)
	assert.Equal(t, 1, initial.VersionNumber)
	assert.Equal(t, manual.ID, initial.ManualID)
	require.NotNil(t, manual.CurrentVersionID)
	assert.Equal(t, initial.ID, *manual.CurrentVersionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryCreateDuplicateSlug(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO manuals").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Manual{Title: "Guide", Slug: "guide", CreatedBy: "u1"}, &models.ManualVersion{CreatedBy: "u1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryGetBySlug(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM manuals WHERE slug").
		WithArgs("guide").
		WillReturnRows(manualRows().AddRow("m1", "Guide", "guide", "Ops", nil, "DRAFT", "u1", nil, nil, now, now))
	mock.ExpectQuery("SELECT (.+) FROM manual_collaborators WHERE manual_id").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "manual_id", "user_id", "role", "added_by", "created_at"}).
			AddRow("g1", "m1", "helper", "EDITOR", "u1", now))
	mock.ExpectQuery("SELECT (.+) FROM tags t JOIN manual_tags").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
			AddRow("t1", "Ops", "ops", now, now))

	manual, err := repo.GetBySlug(context.Background(), "guide")
	require.NoError(t, err)
	assert.Equal(t, "m1", manual.ID)
	require.Len(t, manual.Collaborators, 1)
	assert.Equal(t, models.CollaboratorEditor, manual.Collaborators[0].Role)
	require.Len(t, manual.Tags, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryGetBySlugNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM manuals WHERE slug").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryListWithViewerScope(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM manuals m WHERE (.+)created_by").
		WithArgs(models.ManualStatusDraft, "u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	now := time.Now()
	mock.ExpectQuery("SELECT m.id, (.+) FROM manuals m WHERE (.+) ORDER BY m.updated_at DESC").
		WithArgs(models.ManualStatusDraft, "u1").
		WillReturnRows(manualRows().AddRow("m1", "Guide", "guide", "Ops", nil, "DRAFT", "u1", nil, nil, now, now))

	manuals, total, err := repo.List(context.Background(), models.ManualFilter{
		Status:   []models.ManualStatus{models.ManualStatusDraft},
		ViewerID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, manuals, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryPublishVersion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE manual_versions SET is_published = FALSE").
		WithArgs(sqlmock.AnyArg(), "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE manual_versions SET is_published = TRUE").
		WithArgs(sqlmock.AnyArg(), "v2", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE manuals SET status").
		WithArgs(models.ManualStatusPublished, "v2", sqlmock.AnyArg(), "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.PublishVersion(context.Background(), "m1", "v2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryPublishUnknownVersionRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE manual_versions SET is_published = FALSE").
		WithArgs(sqlmock.AnyArg(), "m1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE manual_versions SET is_published = TRUE").
		WithArgs(sqlmock.AnyArg(), "ghost", "m1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.PublishVersion(context.Background(), "m1", "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryReplaceTags(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM manual_tags").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO manual_tags").
		WithArgs("m1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO manual_tags").
		WithArgs("m1", "t2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceTags(context.Background(), "m1", []string{"t1", "t2"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManualRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewManualRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE manuals SET current_version_id = NULL").
		WithArgs("m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM audit_logs").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM review_requests").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM content_blocks").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("DELETE FROM manual_versions").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM manual_collaborators").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM manual_tags").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM manuals WHERE id").WithArgs("m1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
