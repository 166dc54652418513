package observability

import "github.com/sirupsen/logrus"

// logrusLogger adapts a logrus entry to the Logger interface.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps a logrus logger. A nil argument uses the logrus
// standard logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) withFields(fields []Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key()] = f.Value()
	}
	return l.entry.WithFields(data)
}

func (l *logrusLogger) Debug(msg string, fields ...Field) { l.withFields(fields).Debug(msg) }
func (l *logrusLogger) Info(msg string, fields ...Field)  { l.withFields(fields).Info(msg) }
func (l *logrusLogger) Warn(msg string, fields ...Field)  { l.withFields(fields).Warn(msg) }
func (l *logrusLogger) Error(msg string, fields ...Field) { l.withFields(fields).Error(msg) }

func (l *logrusLogger) With(fields ...Field) Logger {
	return &logrusLogger{entry: l.withFields(fields)}
}
