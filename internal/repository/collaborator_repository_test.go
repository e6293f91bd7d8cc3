package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualhub/manual-api/internal/models"
)

func TestCollaboratorRepositoryAdd(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollaboratorRepository(db)

	mock.ExpectExec("INSERT INTO manual_collaborators").
		WithArgs(sqlmock.AnyArg(), "m1", "helper", models.CollaboratorEditor, "owner", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	grant := &models.ManualCollaborator{
		ManualID: "m1",
		UserID:   "helper",
		Role:     models.CollaboratorEditor,
		AddedBy:  "owner",
	}
	require.NoError(t, repo.Add(context.Background(), grant))
	assert.NotEmpty(t, grant.ID)
	assert.False(t, grant.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaboratorRepositoryAddDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollaboratorRepository(db)

	mock.ExpectExec("INSERT INTO manual_collaborators").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Add(context.Background(), &models.ManualCollaborator{
		ManualID: "m1", UserID: "helper", Role: models.CollaboratorViewer, AddedBy: "owner",
	})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaboratorRepositoryListByManual(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollaboratorRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM manual_collaborators WHERE manual_id = \\$1 ORDER BY created_at").
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "manual_id", "user_id", "role", "added_by", "created_at"}).
			AddRow("g1", "m1", "helper", "EDITOR", "owner", now).
			AddRow("g2", "m1", "reader", "VIEWER", "owner", now))

	grants, err := repo.ListByManual(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, models.CollaboratorViewer, grants[1].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaboratorRepositoryRemove(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollaboratorRepository(db)

	mock.ExpectExec("DELETE FROM manual_collaborators WHERE manual_id = \\$1 AND user_id = \\$2").
		WithArgs("m1", "helper").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Remove(context.Background(), "m1", "helper"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaboratorRepositoryRemoveMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCollaboratorRepository(db)

	mock.ExpectExec("DELETE FROM manual_collaborators WHERE manual_id = \\$1 AND user_id = \\$2").
		WithArgs("m1", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Remove(context.Background(), "m1", "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
