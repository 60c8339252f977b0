package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeProblem(t *testing.T, res *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	var p ProblemDetail
	require.NoError(t, json.NewDecoder(res.Body).Decode(&p))
	return p
}

func TestRespondErrorConflict(t *testing.T) {
	res := httptest.NewRecorder()
	RespondError(res, fmt.Errorf("export pending: %w", ErrConflict), "Not ready yet")

	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
	p := decodeProblem(t, res)
	assert.Equal(t, "Conflict", p.Title)
	assert.Equal(t, "Not ready yet", p.Detail)
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	res := httptest.NewRecorder()
	RespondError(res, errors.New("redis: connection refused"), "ignored")

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	p := decodeProblem(t, res)
	assert.Equal(t, "Internal Error", p.Title)
	assert.Empty(t, p.Detail)
}
