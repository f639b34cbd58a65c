package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/restcache"
)

func TestFieldsReachLogrus(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: logrus.NewEntry(base)}

	l.Error("gen bump error", restcache.Fields{"scope": "/users", "err": errors.New("down")})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.ErrorLevel {
		t.Fatalf("entry=%v", e)
	}
	if e.Data["scope"] != "/users" {
		t.Fatalf("data=%v", e.Data)
	}
	if err, _ := e.Data[logrus.ErrorKey].(error); err == nil || err.Error() != "down" {
		t.Fatalf("error field=%v", e.Data[logrus.ErrorKey])
	}
}
