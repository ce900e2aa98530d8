package responsewriter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := Wrap(rec)

	assert.Equal(t, http.StatusOK, wrapped.StatusCode())
	assert.Zero(t, wrapped.BytesWritten())
	assert.False(t, wrapped.Written())
	assert.Same(t, wrapped, Wrap(wrapped))
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.WriteHeader(http.StatusBadGateway)
	w.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusBadGateway, w.StatusCode())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.True(t, w.Written())
}

func TestResponseWriter_Write(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   int
	}{
		{"single", []string{`{"success":true}`}, 16},
		{"multiple", []string{"ab", "cde", ""}, 5},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			w := Wrap(rec)
			for _, c := range tt.chunks {
				_, err := w.Write([]byte(c))
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, w.BytesWritten())
			assert.Equal(t, http.StatusOK, w.StatusCode())
		})
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)

	w.Flush()

	assert.True(t, rec.Flushed)
	assert.True(t, w.Written())
}

func TestResponseWriter_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.Same(t, rec, Wrap(rec).Unwrap())
}
