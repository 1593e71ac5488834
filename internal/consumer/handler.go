package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ProjectsAPI/internal/model"
)

// Repo описывает хранилище аналитики (ClickHouse) для пакетной записи событий проектов
type Repo interface {
	BatchInsertEvents(ctx context.Context, events []model.ProjectEvent) error
}

// Consumer буферизует события из NATS и отправляет их пакетами в ClickHouse.
// mu защищает буфер events
type Consumer struct {
	repo      Repo
	batchSize int
	log       zerolog.Logger
	events    []model.ProjectEvent
	mu        sync.Mutex
}

// NewConsumer создаёт Consumer с указанным репозиторием и размером пакета
func NewConsumer(repo Repo, batchSize int, log zerolog.Logger) *Consumer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Consumer{repo: repo, batchSize: batchSize, log: log, events: make([]model.ProjectEvent, 0, batchSize)}
}

// HandleMessage разбирает событие и добавляет его в буфер;
// при достижении batchSize буфер уходит в ClickHouse
func (c *Consumer) HandleMessage(ctx context.Context, data []byte) error {
	var e model.ProjectEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("failed to decode project event: %w", err)
	}
	switch e.Type {
	case model.EventProjectCreated, model.EventProjectUpdated, model.EventProjectDeleted:
	default:
		return fmt.Errorf("unknown project event type %q", e.Type)
	}
	c.log.Debug().Str("type", string(e.Type)).Str("project_id", e.Project.ID.String()).Msg("event received")

	c.mu.Lock()
	c.events = append(c.events, e)
	if len(c.events) < c.batchSize {
		c.mu.Unlock()
		return nil
	}
	batch := c.drainLocked()
	c.mu.Unlock()
	// при ошибке вставки пачка не возвращается в буфер и теряется
	return c.insert(ctx, batch)
}

// Flush отправляет все накопленные события, если они есть
func (c *Consumer) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.drainLocked()
	c.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	return c.insert(ctx, batch)
}

// Pending возвращает число событий в буфере
func (c *Consumer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *Consumer) drainLocked() []model.ProjectEvent {
	if len(c.events) == 0 {
		return nil
	}
	batch := make([]model.ProjectEvent, len(c.events))
	copy(batch, c.events)
	c.events = c.events[:0]
	return batch
}

func (c *Consumer) insert(ctx context.Context, batch []model.ProjectEvent) error {
	if err := c.repo.BatchInsertEvents(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert %d events: %w", len(batch), err)
	}
	c.log.Info().Int("count", len(batch)).Msg("events batch inserted")
	return nil
}

// Subscription подписка, которую можно дренировать (*nats.Subscription)
type Subscription interface {
	Drain() error
	IsValid() bool
}

// drainPollInterval период проверки завершения дренажа подписки
var drainPollInterval = 10 * time.Millisecond

// Shutdown дренирует подписку, дожидается обработки уже полученных сообщений
// и сбрасывает буфер. Сброс выполняется и при ошибке дренажа
func (c *Consumer) Shutdown(ctx context.Context, sub Subscription) error {
	var drainErr error
	if err := sub.Drain(); err != nil {
		drainErr = fmt.Errorf("failed to drain subscription: %w", err)
	} else {
		ticker := time.NewTicker(drainPollInterval)
		defer ticker.Stop()
	wait:
		for sub.IsValid() {
			select {
			case <-ctx.Done():
				drainErr = fmt.Errorf("subscription drain not finished: %w", ctx.Err())
				break wait
			case <-ticker.C:
			}
		}
	}
	c.log.Info().Int("pending", c.Pending()).Msg("flushing remaining events")
	if err := c.Flush(ctx); err != nil {
		return errors.Join(drainErr, err)
	}
	return drainErr
}
