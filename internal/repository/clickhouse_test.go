package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"ProjectsAPI/internal/model"
)

func TestBatchInsertEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := NewClickhouseRepo(db)
	defer db.Close()

	id := uuid.New()
	createdAt := time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)
	occurred := createdAt.Add(time.Hour)
	events := []model.ProjectEvent{
		{
			Type:       model.EventProjectCreated,
			Project:    model.Project{ID: id, Name: "Residence A", Status: model.StatusPublished, Amount: 120000, CreatedAt: createdAt},
			OccurredAt: occurred,
		},
	}

	// Ожидаем начало транзакции
	mock.ExpectBegin()
	// Ожидаем подготовку запроса и одну вставку
	mock.ExpectPrepare("INSERT INTO project_events").
		ExpectExec().
		WithArgs(id.String(), "project.created", "Residence A", "PUBLISHED", 120000.0, createdAt, occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// Ожидаем коммит
	mock.ExpectCommit()

	err = repo.BatchInsertEvents(context.Background(), events)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertEvents_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	// пустой пакет не должен открывать транзакцию
	require.NoError(t, NewClickhouseRepo(db).BatchInsertEvents(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchInsertEvents_ExecError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO project_events").
		ExpectExec().
		WillReturnError(errors.New("exec failed"))
	mock.ExpectRollback()

	err = NewClickhouseRepo(db).BatchInsertEvents(context.Background(), []model.ProjectEvent{
		model.NewProjectEvent(model.EventProjectDeleted, model.Project{ID: uuid.New(), Name: "x", Status: model.StatusDraft}),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "exec failed")
	require.NoError(t, mock.ExpectationsWereMet())
}
