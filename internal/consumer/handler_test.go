package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ProjectsAPI/internal/model"
)

// mockRepo реализует интерфейс Repo и сохраняет полученные события для проверки
type mockRepo struct {
	received [][]model.ProjectEvent // полученные батчи событий
	err      error                  // ошибка, которую вернет BatchInsertEvents
}

func (m *mockRepo) BatchInsertEvents(ctx context.Context, events []model.ProjectEvent) error {
	// сохраняем копию слайса для проверки
	copyBatch := make([]model.ProjectEvent, len(events))
	copy(copyBatch, events)
	m.received = append(m.received, copyBatch)
	return m.err
}

func eventJSON(t *testing.T, typ model.EventType, name string) []byte {
	t.Helper()
	data, err := json.Marshal(model.NewProjectEvent(typ, model.Project{ID: uuid.New(), Name: name, Status: model.StatusDraft}))
	require.NoError(t, err)
	return data
}

func TestHandleMessage_NoFlush(t *testing.T) {
	// при количестве событий меньше batchSize записи в репозиторий нет
	repo := &mockRepo{}
	cons := NewConsumer(repo, 3, zerolog.Nop())

	err := cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectCreated, "p1"))
	require.NoError(t, err)
	require.Len(t, repo.received, 0)
	require.Equal(t, 1, cons.Pending())
}

func TestHandleMessage_FlushOnBatch(t *testing.T) {
	// при достижении batchSize события отправляются репозиторию
	repo := &mockRepo{}
	cons := NewConsumer(repo, 2, zerolog.Nop())

	require.NoError(t, cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectCreated, "first")))
	require.NoError(t, cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectDeleted, "second")))

	require.Len(t, repo.received, 1)
	require.Len(t, repo.received[0], 2)
	require.Equal(t, "first", repo.received[0][0].Project.Name)
	require.Equal(t, model.EventProjectDeleted, repo.received[0][1].Type)
	require.Zero(t, cons.Pending())
}

func TestFlush_Empty(t *testing.T) {
	// Flush ничего не делает, если буфер пуст
	repo := &mockRepo{}
	cons := NewConsumer(repo, 5, zerolog.Nop())
	require.NoError(t, cons.Flush(context.Background()))
	require.Len(t, repo.received, 0)
}

func TestFlush_NonEmpty(t *testing.T) {
	// Flush отправляет накопленные события
	repo := &mockRepo{}
	cons := NewConsumer(repo, 5, zerolog.Nop())

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectUpdated, name)))
	}
	require.Len(t, repo.received, 0)

	require.NoError(t, cons.Flush(context.Background()))
	require.Len(t, repo.received, 1)
	require.Len(t, repo.received[0], 3)
}

func TestHandleMessage_ParseError(t *testing.T) {
	// некорректный JSON и неизвестный тип события отклоняются
	repo := &mockRepo{}
	cons := NewConsumer(repo, 1, zerolog.Nop())
	require.Error(t, cons.HandleMessage(context.Background(), []byte("not json")))
	require.Error(t, cons.HandleMessage(context.Background(), []byte(`{"type":"project.renamed"}`)))
	require.Len(t, repo.received, 0)
	require.Zero(t, cons.Pending())
}

func TestBatchInsertError_IsPropagated(t *testing.T) {
	// ошибка из репозитория возвращается при достижении batchSize
	ex := errors.New("insert failed")
	repo := &mockRepo{err: ex}
	cons := NewConsumer(repo, 1, zerolog.Nop())
	err := cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectCreated, "x"))
	require.Error(t, err)
	require.ErrorIs(t, err, ex)
	// пачка не остаётся в буфере
	require.Zero(t, cons.Pending())
}

// fakeSub имитирует дренаж подписки NATS: onDrain выполняется асинхронно,
// после него подписка становится недействительной
type fakeSub struct {
	valid    atomic.Bool
	onDrain  func()
	drainErr error
	stuck    bool
}

func newFakeSub(onDrain func()) *fakeSub {
	s := &fakeSub{onDrain: onDrain}
	s.valid.Store(true)
	return s
}

func (s *fakeSub) Drain() error {
	if s.drainErr != nil {
		return s.drainErr
	}
	go func() {
		if s.onDrain != nil {
			s.onDrain()
		}
		if !s.stuck {
			s.valid.Store(false)
		}
	}()
	return nil
}

func (s *fakeSub) IsValid() bool { return s.valid.Load() }

func TestShutdown_WaitsForInFlightMessages(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 10, zerolog.Nop())
	require.NoError(t, cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectCreated, "early")))

	sub := newFakeSub(func() {
		// сообщение, обработка которого ещё идёт в момент остановки
		time.Sleep(30 * time.Millisecond)
		_ = cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectUpdated, "late"))
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, cons.Shutdown(ctx, sub))

	require.Len(t, repo.received, 1)
	require.Len(t, repo.received[0], 2)
	require.Equal(t, "late", repo.received[0][1].Project.Name)
	require.Zero(t, cons.Pending())
}

func TestShutdown_DrainTimeoutStillFlushes(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 10, zerolog.Nop())
	require.NoError(t, cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectCreated, "a")))

	sub := newFakeSub(nil)
	sub.stuck = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := cons.Shutdown(ctx, sub)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, repo.received, 1)
}

func TestShutdown_DrainError(t *testing.T) {
	repo := &mockRepo{}
	cons := NewConsumer(repo, 10, zerolog.Nop())
	require.NoError(t, cons.HandleMessage(context.Background(), eventJSON(t, model.EventProjectDeleted, "a")))

	sub := newFakeSub(nil)
	sub.drainErr = errors.New("connection closed")

	err := cons.Shutdown(context.Background(), sub)
	require.ErrorIs(t, err, sub.drainErr)
	require.Len(t, repo.received, 1)
}
