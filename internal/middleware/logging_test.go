package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logLine runs one request through RequestID and Logger and returns the
// decoded log record.
func logLine(t *testing.T, h http.HandlerFunc) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	chain := chimiddleware.RequestID(Logger(logger)(h))
	chain.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/graphql", nil))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus float64
		wantLevel  string
		wantBytes  float64
	}{
		{
			name: "implicit 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"data":{}}`))
			},
			wantStatus: 200,
			wantLevel:  "INFO",
			wantBytes:  11,
		},
		{
			name: "client error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			},
			wantStatus: 400,
			wantLevel:  "INFO",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantStatus: 500,
			wantLevel:  "ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := logLine(t, tt.handler)

			assert.Equal(t, "request completed", record["msg"])
			assert.Equal(t, tt.wantLevel, record["level"])
			assert.Equal(t, tt.wantStatus, record["status"])
			assert.Equal(t, tt.wantBytes, record["bytes"])
			assert.Equal(t, http.MethodPost, record["method"])
			assert.Equal(t, "/api/graphql", record["path"])
			assert.NotEmpty(t, record["requestID"])
		})
	}
}
