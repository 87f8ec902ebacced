package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newBufferLogger() (Logger, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	return NewSlogLogger(slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))), buf
}

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, buf := newBufferLogger()

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(RequestIDKey, "req-1")
		c.Next()
	})
	router.Use(ContextLogger(logger))
	router.Use(LoggerMiddleware(logger))
	router.GET("/ping", func(c *gin.Context) {
		GetLogger(c, nil).Info("inside handler")
		c.Status(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping?x=1", nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	var inner map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &inner); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if inner[RequestIDKey] != "req-1" {
		t.Errorf("handler log missing request id: %v", inner)
	}

	var access map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &access); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if access["level"] != "WARN" {
		t.Errorf("4xx should log at WARN, got %v", access["level"])
	}
	if access["path"] != "/ping?x=1" || access["method"] != "GET" {
		t.Errorf("unexpected access line: %v", access)
	}
	if access["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", access["status"])
	}
}

func TestFromContext(t *testing.T) {
	fallback, _ := newBufferLogger()
	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("expected fallback when no logger is stored")
	}

	stored, _ := newBufferLogger()
	ctx := WithLogger(context.Background(), stored)
	if got := FromContext(ctx, fallback); got != stored {
		t.Error("expected stored logger")
	}
}

func TestNewLogHandler_File(t *testing.T) {
	path := t.TempDir() + "/app.log"
	l := slog.New(NewLogHandler(slog.LevelInfo, LogFileConfig{Path: path}))
	l.Debug("dropped")
	l.Info("kept", "k", "v")

	if !l.Enabled(context.Background(), slog.LevelInfo) || l.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("handler level not applied")
	}
}
