package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	type report struct {
		Attempted int  `json:"attempted"`
		Delegated bool `json:"delegated"`
	}

	tests := []struct {
		name     string
		data     any
		status   int
		wantBody string
	}{
		{name: "struct", data: report{Attempted: 3}, status: http.StatusOK, wantBody: `{"attempted":3,"delegated":false}`},
		{name: "custom status", data: map[string]bool{"online": false}, status: http.StatusServiceUnavailable, wantBody: `{"online":false}`},
		{name: "nil", data: nil, status: http.StatusOK, wantBody: `null`},
		{name: "slice", data: []string{"a", "b"}, status: http.StatusOK, wantBody: `["a","b"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			n, err := WriteJSON(rr, tt.data, tt.status)
			require.NoError(t, err)

			assert.Equal(t, len(tt.wantBody), n)
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestWriteJSON_Unmarshalable(t *testing.T) {
	rr := httptest.NewRecorder()

	n, err := WriteJSON(rr, map[string]any{"ch": make(chan int)}, http.StatusOK)
	require.Error(t, err)

	assert.Zero(t, n)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteError(rr, "sync failed", http.StatusInternalServerError)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"sync failed"}`, rr.Body.String())
}
