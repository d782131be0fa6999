package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	log   *zap.SugaredLogger
	level zap.AtomicLevel
}

var zapLogger *ZapLogger

// NewLogger builds a zap logger from config and installs it as the global logger.
func NewLogger(config zap.Config) (*ZapLogger, error) {
	l, err := config.Build()
	if err != nil {
		return nil, err
	}
	zapLogger = &ZapLogger{
		log:   l.WithOptions(zap.AddCallerSkip(2)).Sugar(),
		level: config.Level,
	}
	return zapLogger, nil
}

// UseCore installs a logger writing to core, mostly for capturing output in tests.
func UseCore(core zapcore.Core) *ZapLogger {
	level := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	zapLogger = &ZapLogger{
		log:   zap.New(core, zap.AddCallerSkip(2)).Sugar(),
		level: level,
	}
	return zapLogger
}

func GetLogger() *ZapLogger {
	if zapLogger == nil {
		panic("logger not initialized")
	}
	return zapLogger
}

func (l *ZapLogger) Panic(message string, values ...any) {
	l.log.Panicw(message, values...)
}

func (l *ZapLogger) Fatal(error error, values ...any) {
	l.log.Fatalw(error.Error(), values...)
}

func (l *ZapLogger) Info(message string, values ...any) {
	l.log.Infow(message, values...)
}

func (l *ZapLogger) Warn(message string, values ...any) {
	l.log.Warnw(message, values...)
}

func (l *ZapLogger) Error(message string, values ...any) {
	l.log.Errorw(message, values...)
}

func (l *ZapLogger) Debug(message string, values ...any) {
	l.log.Debugw(message, values...)
}

func (l *ZapLogger) Printf(format string, args ...interface{}) {
	l.log.Infof(format, args...)
}
