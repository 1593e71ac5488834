package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ProjectsAPI/internal/model"
)

// ClickhouseRepo реализует пакетную запись событий проектов в ClickHouse
type ClickhouseRepo struct {
	db *sql.DB
}

// NewClickhouseRepo создаёт новый репозиторий для ClickHouse
func NewClickhouseRepo(db *sql.DB) *ClickhouseRepo {
	return &ClickhouseRepo{db: db}
}

// BatchInsertEvents записывает пакет событий в таблицу project_events.
// clickhouse-go собирает все Exec подготовленного запроса в один блок и отправляет его на Commit
func (r *ClickhouseRepo) BatchInsertEvents(ctx context.Context, events []model.ProjectEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin clickhouse batch: %w", err)
	}
	query := `INSERT INTO project_events (ProjectId, Type, Name, Status, Amount, CreatedAt, EventTime) VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare clickhouse batch: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range events {
		_, err := stmt.ExecContext(ctx,
			e.Project.ID.String(), string(e.Type), e.Project.Name,
			string(e.Project.Status), e.Project.Amount,
			e.Project.CreatedAt, e.OccurredAt,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to append event to batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clickhouse batch: %w", err)
	}
	return nil
}
