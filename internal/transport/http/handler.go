package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"ProjectsAPI/internal/model"
	"ProjectsAPI/internal/repository"
)

// ProjectsService задаёт интерфейс бизнес-логики для HTTP-слоя
type ProjectsService interface {
	List(ctx context.Context, q model.ListQuery) (*model.ProjectPage, error)
	Create(ctx context.Context, in model.CreateProjectInput) (*model.Project, error)
	Update(ctx context.Context, id uuid.UUID, in model.UpdateProjectInput) (*model.Project, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// Pinger проверяет доступность хранилища для /readyz
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler содержит зависимости и реализует HTTP-эндпоинты проектов
type Handler struct {
	srv      ProjectsService
	pinger   Pinger
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHandler создаёт новый HTTP Handler. pinger может быть nil
func NewHandler(srv ProjectsService, pinger Pinger, log zerolog.Logger) *Handler {
	return &Handler{srv: srv, pinger: pinger, validate: newValidator(), log: log}
}

// RegisterRoutes регистрирует маршруты API
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Эндпоинты для проверки здоровья и готовности сервиса
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/projects", h.List).Methods("GET")
	r.HandleFunc("/projects", h.Create).Methods("POST")
	r.HandleFunc("/projects/{id}", h.Update).Methods("PUT")
	r.HandleFunc("/projects/{id}", h.Remove).Methods("DELETE")
}

// ErrorResponse модель ошибки API
type ErrorResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

const (
	codeInternal   = 1
	codeValidation = 2
	codeNotFound   = 3
)

func writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, ErrorResponse{codeNotFound, "errors.common.notFound", map[string]interface{}{}})
}

// writeServiceError переводит ошибку сервиса в HTTP-ответ.
// Всё, что не NotFound, - ошибка хранилища: клиент получает 500, причина уходит в лог
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeNotFound(w)
		return
	}
	h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, ErrorResponse{codeInternal, "errors.common.internal", map[string]interface{}{}})
}

func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, ErrorResponse{codeValidation, "errors.common.validation", verr.Details})
		return
	}
	writeError(w, http.StatusBadRequest, ErrorResponse{codeInternal, "invalid request body", map[string]interface{}{}})
}

// pathID извлекает {id}. Строка, не являющаяся UUID, не может существовать в хранилище
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// List обрабатывает GET /projects?status=&q=&page=&pageSize=
// Некорректные page/pageSize не являются ошибкой, сервис подставит значения по умолчанию
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := h.srv.List(r.Context(), model.ListQuery{
		Status:   query.Get("status"),
		Q:        query.Get("q"),
		Page:     query.Get("page"),
		PageSize: query.Get("pageSize"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Create обрабатывает POST /projects
// 1. Декодирует и валидирует тело
// 2. Вызывает сервис Create
// 3. Возвращает 201 и созданный проект
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	p, err := h.srv.Create(r.Context(), req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Update обрабатывает PUT /projects/{id}
// Тело проверяется до поиска записи, поэтому невалидный ввод даёт 400 даже для отсутствующего id
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeAndValidate(w, r, h.validate, &req); err != nil {
		h.writeValidationError(w, err)
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	p, err := h.srv.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Remove обрабатывает DELETE /projects/{id}, при успехе 204 без тела
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeNotFound(w)
		return
	}
	if err := h.srv.Remove(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Healthz возвращает статус работы сервиса
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Readyz возвращает готовность сервиса; при недоступном хранилище 503
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.log.Warn().Err(err).Msg("store is not ready")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}
