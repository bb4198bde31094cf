package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	require.NoError(t, Initialize("info"))
	assert.NotNil(t, Log)

	// Неизвестный уровень логирования возвращает ошибку
	assert.Error(t, Initialize("not-a-level"))
}

func TestRequestLogger(t *testing.T) {
	require.NoError(t, Initialize("info"))

	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	req := httptest.NewRequest(http.MethodPost, "/issue/doc/2048", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	// Middleware не должен искажать ответ обработчика
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "created", w.Body.String())
}

func TestResponseWriterWrapper(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriterWrapper{ResponseWriter: rec, statusCode: http.StatusOK}

	ww.WriteHeader(http.StatusTeapot)
	n, err := ww.Write([]byte("body"))

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, http.StatusTeapot, ww.statusCode)
	assert.Equal(t, 4, ww.responseSize)
}
