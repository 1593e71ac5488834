package model

import "time"

// EventType тип события жизненного цикла проекта
type EventType string

const (
	EventProjectCreated EventType = "project.created"
	EventProjectUpdated EventType = "project.updated"
	EventProjectDeleted EventType = "project.deleted"
)

// ProjectEvent событие, публикуемое в NATS после успешной мутации
// Project содержит состояние записи после операции (для удаления - последнее известное)
type ProjectEvent struct {
	Type       EventType `json:"type"`
	Project    Project   `json:"project"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewProjectEvent создаёт событие с текущим временем в UTC
func NewProjectEvent(t EventType, p Project) ProjectEvent {
	return ProjectEvent{Type: t, Project: p, OccurredAt: time.Now().UTC()}
}
