package model

import (
	"time"

	"github.com/google/uuid"
)

// Status статус проекта (закрытое перечисление)
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// Valid сообщает, входит ли значение в перечисление
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Project представляет проект (таблица projects)
// ID и CreatedAt назначаются хранилищем при создании и больше не меняются
type Project struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Status    Status    `db:"status" json:"status"`
	Amount    float64   `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CreateProjectInput провалидированные данные для создания проекта
type CreateProjectInput struct {
	Name   string
	Status Status
	Amount float64
}

// UpdateProjectInput частичное обновление: nil означает "поле не передано"
type UpdateProjectInput struct {
	Name   *string
	Status *Status
	Amount *float64
}

// Empty сообщает, что в обновлении нет ни одного поля
func (u UpdateProjectInput) Empty() bool {
	return u.Name == nil && u.Status == nil && u.Amount == nil
}
