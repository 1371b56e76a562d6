package observability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
)

func TestHealthHandlers(t *testing.T) {
	t.Parallel()

	probe := func(h http.Handler) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		return rec
	}

	live := probe(observability.HealthHandler())
	assert.Equal(t, http.StatusOK, live.Code)
	assert.JSONEq(t, `{"status":"ok"}`, live.Body.String())

	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("draining") }

	assert.Equal(t, http.StatusOK, probe(observability.ReadyHandler(ok)).Code)

	down := probe(observability.ReadyHandler(ok, failing))
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
	assert.JSONEq(t, `{"status":"unavailable","reason":"draining"}`, down.Body.String())
}
