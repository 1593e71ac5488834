package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ProjectsAPI/internal/model"
	"ProjectsAPI/internal/repository"
)

// Repo определяет интерфейс хранилища проектов.
// Реализации: Postgres (repository.ProjectRepository) и память процесса (repository.MemoryRepository)
type Repo interface {
	CreateProject(ctx context.Context, in model.CreateProjectInput) (*model.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error)
	UpdateProject(ctx context.Context, id uuid.UUID, in model.UpdateProjectInput) (*model.Project, error)
	DeleteProject(ctx context.Context, id uuid.UUID) error
	ListProjects(ctx context.Context, p model.ListParams) ([]model.Project, int, error)
}

// EventPublisher публикует события жизненного цикла проекта (NATS)
type EventPublisher interface {
	PublishEvent(e model.ProjectEvent) error
}

// NotFoundError возвращается, когда проект с заданным id отсутствует
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project %s not found", e.ID)
}

// Is позволяет сравнивать через errors.Is(err, repository.ErrNotFound)
func (e *NotFoundError) Is(target error) bool {
	return target == repository.ErrNotFound
}

// ProjectsService реализует бизнес-логику проектов:
// список с фильтрами и пагинацией, создание, частичное обновление и удаление.
// Вход Create/Update считается уже провалидированным транспортным слоем
type ProjectsService struct {
	repo   Repo
	events EventPublisher
	log    zerolog.Logger
}

// NewProjectsService создаёт сервис проектов
func NewProjectsService(r Repo, e EventPublisher, l zerolog.Logger) *ProjectsService {
	return &ProjectsService{repo: r, events: e, log: l}
}

// List возвращает страницу проектов, общее число совпадений и нормализованные page/pageSize
func (s *ProjectsService) List(ctx context.Context, q model.ListQuery) (*model.ProjectPage, error) {
	params := NormalizeListQuery(q)
	projects, total, err := s.repo.ListProjects(ctx, params)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []model.Project{}
	}
	return &model.ProjectPage{
		Data:     projects,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}, nil
}

// Create создаёт проект; id и createdAt назначает хранилище
func (s *ProjectsService) Create(ctx context.Context, in model.CreateProjectInput) (*model.Project, error) {
	p, err := s.repo.CreateProject(ctx, in)
	if err != nil {
		return nil, err
	}
	s.publish(model.EventProjectCreated, *p)
	return p, nil
}

// Update проверяет существование проекта и записывает только переданные поля.
// Проверка и запись - два отдельных обращения к хранилищу
func (s *ProjectsService) Update(ctx context.Context, id uuid.UUID, in model.UpdateProjectInput) (*model.Project, error) {
	if err := s.ensureExists(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.repo.UpdateProject(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.publish(model.EventProjectUpdated, *p)
	return p, nil
}

// Remove проверяет существование проекта и удаляет его.
// В событие уходит последнее известное состояние записи
func (s *ProjectsService) Remove(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.publish(model.EventProjectDeleted, *existing)
	return nil
}

func (s *ProjectsService) ensureExists(ctx context.Context, id uuid.UUID) error {
	_, err := s.repo.GetProject(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	return err
}

// publish отправляет событие; мутация уже выполнена, поэтому ошибка только логируется
func (s *ProjectsService) publish(t model.EventType, p model.Project) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(model.NewProjectEvent(t, p)); err != nil {
		s.log.Warn().Err(err).
			Str("event", string(t)).
			Str("project_id", p.ID.String()).
			Msg("failed to publish project event")
	}
}
