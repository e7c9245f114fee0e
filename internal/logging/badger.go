package logging

import "go.uber.org/zap"

// BadgerLogger implements badger.Logger on top of zap.
type BadgerLogger struct {
	sugar *zap.SugaredLogger
}

// NewBadgerLogger wraps logger for use as badger.Options.Logger.
func NewBadgerLogger(logger *zap.Logger) *BadgerLogger {
	return &BadgerLogger{sugar: OrNop(logger).Named("badger").Sugar()}
}

// Errorf logs an error message.
func (l *BadgerLogger) Errorf(f string, v ...interface{}) { l.sugar.Errorf(f, v...) }

// Warningf logs a warning message.
func (l *BadgerLogger) Warningf(f string, v ...interface{}) { l.sugar.Warnf(f, v...) }

// Infof logs an info message. Badger is chatty at info, so it is demoted.
func (l *BadgerLogger) Infof(f string, v ...interface{}) { l.sugar.Debugf(f, v...) }

// Debugf logs a debug message.
func (l *BadgerLogger) Debugf(f string, v ...interface{}) { l.sugar.Debugf(f, v...) }
