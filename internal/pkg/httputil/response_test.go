package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_SetsHeaderAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"lead_id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body["lead_id"])
}

func TestInternalError_HidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("pq: relation \"leads\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pq:")
	assert.Contains(t, rec.Body.String(), "internal server error")
}

func TestWantsJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/leads/roi", strings.NewReader(""))
	assert.False(t, WantsJSON(r))

	r.Header.Set("Accept", "application/json, text/plain")
	assert.True(t, WantsJSON(r))

	r = httptest.NewRequest(http.MethodPost, "/leads/roi", nil)
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	assert.True(t, WantsJSON(r))
}

func TestDecode_RejectsMalformedBody(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPatch, "/admin", strings.NewReader("{not json"))

	var dst map[string]string
	assert.False(t, Decode(rec, r, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
