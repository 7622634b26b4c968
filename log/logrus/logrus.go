// Package logrus adapts a *logrus.Entry to swrcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=swrcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "swrcache")}
}

func (l LogrusLogger) Debug(msg string, f swrcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f swrcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f swrcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f swrcache.Fields) { l.with(f).Error(msg) }

// with maps "err" onto logrus' error key so formatters pick it up.
func (l LogrusLogger) with(f swrcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			fields[logrus.ErrorKey] = err
			continue
		}
		fields[k] = v
	}
	return l.E.WithFields(fields)
}
