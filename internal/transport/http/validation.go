package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ProjectsAPI/internal/model"
)

// maxBodyBytes ограничивает размер тела запроса
const maxBodyBytes = 1 << 20

// createProjectRequest тело POST /projects.
// Указатели отличают отсутствующее поле от нулевого значения
type createProjectRequest struct {
	Name   *string       `json:"name" validate:"required,min=1,max=255"`
	Status *model.Status `json:"status" validate:"required,oneof=DRAFT PUBLISHED ARCHIVED"`
	Amount *float64      `json:"amount" validate:"required,gte=0"`
}

func (r createProjectRequest) toInput() model.CreateProjectInput {
	return model.CreateProjectInput{Name: *r.Name, Status: *r.Status, Amount: *r.Amount}
}

// updateProjectRequest тело PUT /projects/{id}: любое подмножество полей
type updateProjectRequest struct {
	Name   *string       `json:"name" validate:"omitnil,min=1,max=255"`
	Status *model.Status `json:"status" validate:"omitnil,oneof=DRAFT PUBLISHED ARCHIVED"`
	Amount *float64      `json:"amount" validate:"omitnil,gte=0"`
}

func (r updateProjectRequest) toInput() model.UpdateProjectInput {
	return model.UpdateProjectInput{Name: r.Name, Status: r.Status, Amount: r.Amount}
}

// ValidationError ошибка входных данных; Details - поле -> нарушенное правило
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for field, rule := range e.Details {
		parts = append(parts, field+": "+rule)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// newValidator создаёт валидатор, который называет поля по их JSON-именам
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate читает JSON-тело в dst и проверяет его правилами validate.
// Пустое тело эквивалентно {}; лишние поля отбрасываются, данные после объекта - ошибка
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return decodeError(err)
	}
	// после объекта допускаются только пробельные символы
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return decodeError(err)
		}
		return &ValidationError{Details: map[string]string{"body": "invalid_json"}}
	}
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			return &ValidationError{Details: details}
		}
		return err
	}
	return nil
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &ValidationError{Details: map[string]string{typeErr.Field: "type"}}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &ValidationError{Details: map[string]string{"body": "too_large"}}
	}
	return &ValidationError{Details: map[string]string{"body": "invalid_json"}}
}
