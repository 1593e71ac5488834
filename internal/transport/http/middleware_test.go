package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// TestLoggingMiddleware_Success проверяет, что middleware логирует запрос без паники
func TestLoggingMiddleware_Success(t *testing.T) {
	// Перенаправляем вывод логов в буфер
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// Простая цель-обработчик, возвращает 201 и тело
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodPut, "/test-path?x=1", nil)
	rw := httptest.NewRecorder()
	handler.ServeHTTP(rw, req)

	// Проверяем код ответа и тело
	if rw.Code != http.StatusCreated {
		t.Fatalf("ожидался статус %d, получили %d", http.StatusCreated, rw.Code)
	}
	if got := rw.Body.String(); got != "ok" {
		t.Fatalf("ожидалось тело 'ok', получили '%s'", got)
	}

	// Проверяем, что в логах есть метод, путь и статус
	out := buf.String()
	if !strings.Contains(out, `"method":"PUT"`) || !strings.Contains(out, `"path":"/test-path"`) {
		t.Errorf("ожидалось упоминание метода и пути, получили: %s", out)
	}
	if !strings.Contains(out, `"status":201`) {
		t.Errorf("ожидалось упоминание статуса 201, получили: %s", out)
	}
}

// TestLoggingMiddleware_Panic проверяет, что middleware логирует панику и пробрасывает её дальше
func TestLoggingMiddleware_Panic(t *testing.T) {
	var buf bytes.Buffer
	h := LoggingMiddleware(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom error")
	}))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rw := httptest.NewRecorder()

	// Ожидаем панику, чтобы middleware её повторно пробросил
	defer func() {
		if rec := recover(); rec == nil {
			t.Fatalf("ожидалась паника, но её не было")
		}
		out := buf.String()
		if !strings.Contains(out, "boom error") || !strings.Contains(out, `"path":"/panic"`) {
			t.Errorf("ожидалось логирование паники, получили: %s", out)
		}
	}()

	h.ServeHTTP(rw, req)
}

// TestMetricsMiddleware_RouteTemplate: метка path берётся из шаблона маршрута
func TestMetricsMiddleware_RouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods("GET")

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "202"))
	for _, id := range []string{"1", "2", "3"} {
		rw := httptest.NewRecorder()
		r.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
		require.Equal(t, http.StatusAccepted, rw.Code)
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "202"))
	require.Equal(t, before+3, after)
}

// TestCORS проверяет разрешённый и запрещённый origin, включая preflight
func TestCORS(t *testing.T) {
	wrap, err := NewCORS(`^http://localhost:\d+$`)
	require.NoError(t, err)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := wrap(inner)

	// обычный запрос с разрешённого origin
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "http://localhost:5173", rw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rw.Header().Get("Access-Control-Allow-Credentials"))

	// preflight
	req = httptest.NewRequest(http.MethodOptions, "/projects/1", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Equal(t, "http://localhost:3001", rw.Header().Get("Access-Control-Allow-Origin"))

	// чужой origin не получает заголовков
	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code)
	require.Empty(t, rw.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewCORS_BadPattern(t *testing.T) {
	_, err := NewCORS(`(`)
	require.Error(t, err)
}
