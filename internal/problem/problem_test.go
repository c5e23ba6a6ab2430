package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/wallet-core/internal/apperr"
)

func TestWriteErrorRendersAppErr(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "trace-1", apperr.New(apperr.CodeValidationFailed, "bad input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, apperr.CodeValidationFailed, p.Code)
	assert.Equal(t, "bad input", p.Detail)
	assert.Equal(t, "trace-1", p.TraceID)
}

func TestWriteErrorTreatsUnknownErrorsAsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, "trace-2", errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, apperr.CodeInternal, p.Code)
}

func TestWriteDataWrapsEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusOK, map[string]string{"id": "abc"})

	assert.Equal(t, http.StatusOK, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, map[string]interface{}{"id": "abc"}, env.Data)
}

func TestWriteListIncludesCursorMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteList(rec, http.StatusOK, []int{1, 2, 3}, "cursor-xyz", 20)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	var meta ListMeta
	require.NoError(t, json.Unmarshal(raw["meta"], &meta))
	assert.Equal(t, "cursor-xyz", meta.NextCursor)
	assert.Equal(t, 20, meta.Limit)
}

func TestWriteCreatedSetsLocationHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteCreated(rec, "/api/v1/transactions/txn-1", map[string]string{"id": "txn-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/transactions/txn-1", rec.Header().Get("Location"))
}
