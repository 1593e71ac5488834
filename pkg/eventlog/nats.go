// Пакет eventlog публикует события жизненного цикла проектов в NATS
package eventlog

import (
	"encoding/json"
	"fmt"

	"ProjectsAPI/internal/model"
)

// Conn определяет минимальный интерфейс для работы с NATS-подключением
// Любая реализация Conn (например *nats.Conn) должна предоставлять метод Publish
type Conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher хранит Conn и тему subject для публикации событий
type NATSPublisher struct {
	conn    Conn
	subject string
}

// NewNATSPublisher создаёт NATSPublisher, связывая Conn и subject
func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishEvent сериализует событие в JSON и отправляет его в subject
func (n *NATSPublisher) PublishEvent(e model.ProjectEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal project event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}
	return nil
}

// NoopPublisher используется, когда NATS не настроен
type NoopPublisher struct{}

// PublishEvent ничего не делает
func (NoopPublisher) PublishEvent(model.ProjectEvent) error { return nil }
