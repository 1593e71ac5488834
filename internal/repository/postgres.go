package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ProjectsAPI/internal/model"
)

// ErrNotFound возвращается при отсутствии записи
var ErrNotFound = errors.New("record not found")

// ErrNoRowsAffected возвращается, когда запись исчезла между проверкой существования и записью.
// Это ошибка хранилища, а не NotFound: вызывающий код не должен превращать её в 404
var ErrNoRowsAffected = errors.New("no rows affected by write")

const projectColumns = `id, name, status, amount, created_at`

// ProjectRepository реализует доступ к таблице projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository создает новый репозиторий проектов
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Ping проверяет доступность базы (используется в /readyz)
func (r *ProjectRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row rowScanner) (model.Project, error) {
	var p model.Project
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.Amount, &p.CreatedAt)
	return p, err
}

// CreateProject добавляет новый проект; id и created_at назначает БД
func (r *ProjectRepository) CreateProject(ctx context.Context, in model.CreateProjectInput) (*model.Project, error) {
	query := `INSERT INTO projects(name, status, amount) VALUES($1, $2, $3) RETURNING ` + projectColumns
	p, err := scanProject(r.db.QueryRowContext(ctx, query, in.Name, string(in.Status), in.Amount))
	if err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return &p, nil
}

// GetProject возвращает проект по id
func (r *ProjectRepository) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id=$1`
	p, err := scanProject(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

// UpdateProject записывает только переданные поля.
// Пустое обновление ничего не пишет и возвращает текущую запись
func (r *ProjectRepository) UpdateProject(ctx context.Context, id uuid.UUID, in model.UpdateProjectInput) (*model.Project, error) {
	var sets []string
	var args []interface{}
	if in.Name != nil {
		args = append(args, *in.Name)
		sets = append(sets, fmt.Sprintf("name=$%d", len(args)))
	}
	if in.Status != nil {
		args = append(args, string(*in.Status))
		sets = append(sets, fmt.Sprintf("status=$%d", len(args)))
	}
	if in.Amount != nil {
		args = append(args, *in.Amount)
		sets = append(sets, fmt.Sprintf("amount=$%d", len(args)))
	}

	var query string
	if len(sets) == 0 {
		query = `SELECT ` + projectColumns + ` FROM projects WHERE id=$1`
		args = []interface{}{id.String()}
	} else {
		args = append(args, id.String())
		query = fmt.Sprintf(`UPDATE projects SET %s WHERE id=$%d RETURNING %s`,
			strings.Join(sets, ", "), len(args), projectColumns)
	}

	p, err := scanProject(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to update project %s: %w", id, ErrNoRowsAffected)
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return &p, nil
}

// DeleteProject физически удаляет запись
func (r *ProjectRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to delete project %s: %w", id, ErrNoRowsAffected)
	}
	return nil
}

// buildProjectFilter собирает WHERE из фильтра; аргументы нумеруются с $1.
// Поиск по имени - буквальная подстрока с учётом регистра (strpos, без шаблонов LIKE)
func buildProjectFilter(f model.ProjectFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}
	if f.Q != "" {
		args = append(args, f.Q)
		conds = append(conds, fmt.Sprintf("strpos(name, $%d) > 0", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListProjects возвращает страницу проектов и общее число совпадений.
// Фильтр, который не может ничего найти, обрабатывается без обращения к базе.
// Обе выборки выполняются в одной read-only транзакции REPEATABLE READ, поэтому видят один снимок
func (r *ProjectRepository) ListProjects(ctx context.Context, p model.ListParams) ([]model.Project, int, error) {
	// Postgres отвергает невалидный UTF-8 и NUL в параметрах, такой фильтр просто ничего не находит
	if p.Filter.MatchesNothing() {
		return []model.Project{}, 0, nil
	}
	where, args := buildProjectFilter(p.Filter)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	listArgs := append(append([]interface{}{}, args...), p.PageSize, p.Skip)
	listQuery := fmt.Sprintf(`SELECT %s FROM projects%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		projectColumns, where, len(args)+1, len(args)+2)
	rows, err := tx.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select projects list: %w", err)
	}
	projects := []model.Project{}
	for rows.Next() {
		pr, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, pr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}
	rows.Close()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return projects, total, nil
}
