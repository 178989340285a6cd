package log

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type contextKey struct{}

var (
	logger *logrus.Logger
	mtx    sync.Mutex
)

// Default returns the process-wide logger.
func Default() logrus.FieldLogger {
	mtx.Lock()
	defer mtx.Unlock()
	return get()
}

func get() *logrus.Logger {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

func NewContext(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) logrus.FieldLogger {
	if log, ok := ctx.Value(contextKey{}).(logrus.FieldLogger); ok {
		return log
	}
	return Default()
}
