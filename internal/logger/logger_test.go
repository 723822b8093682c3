package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ali123.log")
	log, err := New(Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	log.Info("queue processed", zap.Int("claimed", 3))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"queue processed"`)
	assert.Contains(t, string(data), `"claimed":3`)
}

func TestNew_BadOutput(t *testing.T) {
	_, err := New(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.NotNil(t, FromContext(ctx))
	assert.Empty(t, GetRequestID(ctx))

	core, recorded := observer.New(zapcore.InfoLevel)
	ctx, enriched := WithRequestID(ctx, zap.New(core), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	FromContext(ctx).Info("hello")
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, "req-1", recorded.All()[0].ContextMap()["request_id"])
}

func TestGinMiddleware_RequestIDAndAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)
	zapLogger := zap.New(core)

	router := gin.New()
	router.Use(RequestID(zapLogger), GinMiddleware(zapLogger))
	router.GET("/missing", func(c *gin.Context) {
		assert.Equal(t, "abc", GetRequestID(c.Request.Context()))
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
	logs := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, logs, 1)
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)
	assert.Equal(t, "abc", logs[0].ContextMap()["request_id"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestCronLogger(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	l := NewCronLogger(zap.New(core))

	l.Info("wake", "now", "x")
	l.Error(errors.New("job failed"), "run", "entry", 1)

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "cron", entries[1].LoggerName)
}
