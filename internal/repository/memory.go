package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"

	"ProjectsAPI/internal/model"
)

const projectsTable = "projects"

// projectRecord хранимое представление проекта в memdb.
// Seq - порядковый номер вставки, разрешает равенство created_at
type projectRecord struct {
	ID        string
	Name      string
	Status    string
	Amount    float64
	CreatedAt time.Time
	Seq       uint64
}

func (r *projectRecord) toModel() model.Project {
	return model.Project{
		ID:        uuid.MustParse(r.ID),
		Name:      r.Name,
		Status:    model.Status(r.Status),
		Amount:    r.Amount,
		CreatedAt: r.CreatedAt,
	}
}

func projectsSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			projectsTable: {
				Name: projectsTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.UUIDFieldIndex{Field: "ID"},
					},
					"status": {
						Name:         "status",
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Status"},
					},
				},
			},
		},
	}
}

// MemoryRepository хранилище проектов в памяти процесса на базе go-memdb.
// Читающие транзакции memdb работают со снимком, поэтому выборка и подсчёт в ListProjects согласованы
type MemoryRepository struct {
	db  *memdb.MemDB
	seq uint64
	now func() time.Time
}

// NewMemoryRepository создаёт пустое хранилище
func NewMemoryRepository() (*MemoryRepository, error) {
	db, err := memdb.NewMemDB(projectsSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &MemoryRepository{db: db, now: time.Now}, nil
}

// CreateProject вставляет запись, назначая id и created_at
func (m *MemoryRepository) CreateProject(_ context.Context, in model.CreateProjectInput) (*model.Project, error) {
	rec := &projectRecord{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Status:    string(in.Status),
		Amount:    in.Amount,
		CreatedAt: m.now().UTC().Truncate(time.Microsecond),
		Seq:       atomic.AddUint64(&m.seq, 1),
	}
	txn := m.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(projectsTable, rec); err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	txn.Commit()
	p := rec.toModel()
	return &p, nil
}

// GetProject возвращает проект по id или ErrNotFound
func (m *MemoryRepository) GetProject(_ context.Context, id uuid.UUID) (*model.Project, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(projectsTable, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	p := raw.(*projectRecord).toModel()
	return &p, nil
}

// UpdateProject применяет переданные поля к копии записи и заменяет её.
// Хранимые объекты memdb не изменяются на месте
func (m *MemoryRepository) UpdateProject(_ context.Context, id uuid.UUID, in model.UpdateProjectInput) (*model.Project, error) {
	txn := m.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(projectsTable, "id", id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to select project for update: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to update project %s: %w", id, ErrNoRowsAffected)
	}
	rec := *raw.(*projectRecord)
	if in.Empty() {
		p := rec.toModel()
		return &p, nil
	}
	if in.Name != nil {
		rec.Name = *in.Name
	}
	if in.Status != nil {
		rec.Status = string(*in.Status)
	}
	if in.Amount != nil {
		rec.Amount = *in.Amount
	}
	if err := txn.Insert(projectsTable, &rec); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	txn.Commit()
	p := rec.toModel()
	return &p, nil
}

// DeleteProject удаляет запись по id
func (m *MemoryRepository) DeleteProject(_ context.Context, id uuid.UUID) error {
	txn := m.db.Txn(true)
	defer txn.Abort()
	if err := txn.Delete(projectsTable, &projectRecord{ID: id.String()}); err != nil {
		if err == memdb.ErrNotFound {
			return fmt.Errorf("failed to delete project %s: %w", id, ErrNoRowsAffected)
		}
		return fmt.Errorf("failed to delete project: %w", err)
	}
	txn.Commit()
	return nil
}

// ListProjects фильтрует, сортирует (created_at DESC, затем позже вставленные первыми)
// и режет окно страницы; total считается по тому же снимку
func (m *MemoryRepository) ListProjects(_ context.Context, p model.ListParams) ([]model.Project, int, error) {
	txn := m.db.Txn(false)
	defer txn.Abort()

	var it memdb.ResultIterator
	var err error
	if p.Filter.Status != "" {
		it, err = txn.Get(projectsTable, "status", p.Filter.Status)
	} else {
		it, err = txn.Get(projectsTable, "id")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select projects list: %w", err)
	}

	var matched []*projectRecord
	for obj := it.Next(); obj != nil; obj = it.Next() {
		rec := obj.(*projectRecord)
		if p.Filter.Q != "" && !strings.Contains(rec.Name, p.Filter.Q) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].Seq > matched[j].Seq
	})

	total := len(matched)
	projects := []model.Project{}
	if p.Skip >= 0 && p.Skip < total {
		end := total
		if p.PageSize < total-p.Skip {
			end = p.Skip + p.PageSize
		}
		for _, rec := range matched[p.Skip:end] {
			projects = append(projects, rec.toModel())
		}
	}
	return projects, total, nil
}
