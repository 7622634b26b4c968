package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/swrcache"
)

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Warn("cache write failed", swrcache.Fields{"key": "news", "err": errors.New("disk full")})
	l.Debug("plain", nil)

	if len(hook.Entries) != 2 {
		t.Fatalf("entries=%d", len(hook.Entries))
	}
	e := hook.Entries[0]
	if e.Level != logrus.WarnLevel || e.Message != "cache write failed" {
		t.Fatalf("entry: %+v", e)
	}
	if e.Data["component"] != "swrcache" || e.Data["key"] != "news" {
		t.Fatalf("data: %+v", e.Data)
	}
	if err, ok := e.Data[logrus.ErrorKey].(error); !ok || err.Error() != "disk full" {
		t.Fatalf("error key: %+v", e.Data)
	}
}
