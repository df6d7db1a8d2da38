package temporal

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// zapLogger adapts zap to the Temporal SDK logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewLogger returns a Temporal SDK logger that writes through logger.
func NewLogger(logger *zap.Logger) log.Logger {
	return &zapLogger{s: logger.Named("temporal-sdk").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

var _ log.WithLogger = (*zapLogger)(nil)

func (l *zapLogger) Debug(msg string, keyvals ...interface{}) { l.s.Debugw(msg, keyvals...) }
func (l *zapLogger) Info(msg string, keyvals ...interface{})  { l.s.Infow(msg, keyvals...) }
func (l *zapLogger) Warn(msg string, keyvals ...interface{})  { l.s.Warnw(msg, keyvals...) }
func (l *zapLogger) Error(msg string, keyvals ...interface{}) { l.s.Errorw(msg, keyvals...) }

func (l *zapLogger) With(keyvals ...interface{}) log.Logger {
	return &zapLogger{s: l.s.With(keyvals...)}
}
