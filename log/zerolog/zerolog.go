// Package zerolog adapts a zerolog.Logger to swrcache.Logger.
package zerolog

import (
	"github.com/rs/zerolog"

	"github.com/unkn0wn-root/swrcache"
)

var _ swrcache.Logger = Logger{}

type Logger struct{ L zerolog.Logger }

func New(l zerolog.Logger) Logger {
	return Logger{L: l.With().Str("component", "swrcache").Logger()}
}

func (z Logger) Debug(msg string, f swrcache.Fields) { with(z.L.Debug(), f).Msg(msg) }
func (z Logger) Info(msg string, f swrcache.Fields)  { with(z.L.Info(), f).Msg(msg) }
func (z Logger) Warn(msg string, f swrcache.Fields)  { with(z.L.Warn(), f).Msg(msg) }
func (z Logger) Error(msg string, f swrcache.Fields) { with(z.L.Error(), f).Msg(msg) }

func with(e *zerolog.Event, f swrcache.Fields) *zerolog.Event {
	if e == nil {
		return e // level disabled
	}
	for k, v := range f {
		if err, ok := v.(error); ok {
			e = e.AnErr(k, err)
			continue
		}
		e = e.Interface(k, v)
	}
	return e
}
