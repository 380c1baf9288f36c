package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bettersystems/crm-api/internal/domain"
	"github.com/bettersystems/crm-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecovery(t *testing.T) {
	t.Run("turns a panic into a 500", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		h := middleware.Recovery(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rr := httptest.NewRecorder()

		require.NotPanics(t, func() {
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/deals", nil))
		})

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		var apiErr domain.APIError
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
		assert.Equal(t, domain.ErrorTypeInternal, apiErr.Type)
		assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	})

	t.Run("re-panics on abort", func(t *testing.T) {
		h := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))

		assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})

	t.Run("passes through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		middleware.Recovery(zap.NewNop())(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
