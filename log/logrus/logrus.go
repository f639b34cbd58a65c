// Package logrus adapts sirupsen/logrus to restcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/restcache"
)

var _ restcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f restcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f restcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f restcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f restcache.Fields) { l.with(f).Error(msg) }

// with maps an "err" field to logrus' error key.
func (l LogrusLogger) with(f restcache.Fields) *logrus.Entry {
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
