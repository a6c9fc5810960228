package db

import (
	"strings"
	"testing"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/values"
)

func TestParseDSNMySQL(t *testing.T) {
	d, err := parseDSN("mysql:host=db1;dbname=app;user=root;password=secret")
	if err != nil {
		t.Fatalf("parseDSN: %v", err)
	}
	if d.Driver != "mysql" || d.Host != "db1" || d.Database != "app" || d.Username != "root" || d.Password != "secret" {
		t.Fatalf("parsed = %+v", d)
	}
	if d.Port != 3306 {
		t.Fatalf("Port = %d, want default 3306", d.Port)
	}
}

func TestParseDSNSQLite(t *testing.T) {
	d, err := parseDSN("sqlite:/tmp/app.db")
	if err != nil {
		t.Fatalf("parseDSN: %v", err)
	}
	if d.Driver != "sqlite" || d.Database != "/tmp/app.db" {
		t.Fatalf("parsed = %+v", d)
	}
}

func TestParseDSNInvalidFormat(t *testing.T) {
	if _, err := parseDSN("not-a-dsn"); err == nil {
		t.Fatal("expected an error for a DSN with no driver prefix")
	}
}

func TestParseDSNInvalidPort(t *testing.T) {
	if _, err := parseDSN("mysql:host=db1;port=notanumber"); err == nil {
		t.Fatal("expected an error for a non-numeric port")
	}
}

func TestMysqlDriverDSNFormat(t *testing.T) {
	d, _ := parseDSN("mysql:host=db1;port=3307;dbname=app;user=root;password=secret")
	got := mysqlDriverDSN(d)
	want := "root:secret@tcp(db1:3307)/app"
	if got != want {
		t.Fatalf("mysqlDriverDSN = %q, want %q", got, want)
	}
}

func TestPgDriverDSNDefaultsSSLModeDisable(t *testing.T) {
	d, _ := parseDSN("pgsql:host=db1;dbname=app;user=postgres")
	got := pgDriverDSN(d)
	if !strings.Contains(got, "sslmode=disable") {
		t.Fatalf("pgDriverDSN = %q, want sslmode=disable", got)
	}
	if !strings.Contains(got, "dbname=app") {
		t.Fatalf("pgDriverDSN = %q, want dbname=app", got)
	}
}

func TestSqliteDriverDSNMemory(t *testing.T) {
	d, _ := parseDSN("sqlite::memory:")
	got := sqliteDriverDSN(d)
	if !strings.Contains(got, "memory") {
		t.Fatalf("sqliteDriverDSN = %q, want an in-memory DSN", got)
	}
}

// fakeRuntime is a minimal types.Runtime double for testing toDriverArgs/
// fromDriverValue without a VirtualMachine.
type fakeRuntime struct{ strings []string }

func (f *fakeRuntime) NewString(s string) values.Value {
	f.strings = append(f.strings, s)
	return values.StringIdx(int64(len(f.strings) - 1))
}
func (f *fakeRuntime) Stringify(v values.Value) (string, error) { return f.StringOf(v) }
func (f *fakeRuntime) StringOf(v values.Value) (string, error) {
	if !v.IsString() {
		return "", errs.NewRuntime(errs.ErrTypeMismatch, "expected a String value")
	}
	return f.strings[v.Payload], nil
}
func (f *fakeRuntime) NewList(elements []values.Value) values.Value  { return values.Nil }
func (f *fakeRuntime) NewDict() values.Value                        { return values.Nil }
func (f *fakeRuntime) NewTuple(elements []values.Value) values.Value { return values.Nil }

func TestToDriverArgsConvertsScalars(t *testing.T) {
	rt := &fakeRuntime{}
	name := rt.NewString("alice")
	out, err := toDriverArgs(rt, []values.Value{values.Int(7), name, values.Nil})
	if err != nil {
		t.Fatalf("toDriverArgs: %v", err)
	}
	if out[0] != int64(7) || out[1] != "alice" || out[2] != nil {
		t.Fatalf("toDriverArgs = %#v", out)
	}
}

func TestToDriverArgsRejectsRef(t *testing.T) {
	rt := &fakeRuntime{}
	_, err := toDriverArgs(rt, []values.Value{values.Ref(1)})
	if err == nil {
		t.Fatal("expected an error for a Ref query parameter")
	}
}

func TestFromDriverValueConvertsFloatToString(t *testing.T) {
	rt := &fakeRuntime{}
	v := fromDriverValue(rt, 3.5)
	s, err := rt.StringOf(v)
	if err != nil {
		t.Fatalf("StringOf: %v", err)
	}
	if s != "3.5" {
		t.Fatalf("fromDriverValue(3.5) stringifies to %q, want \"3.5\"", s)
	}
}

func TestFromDriverValueNilAndBool(t *testing.T) {
	rt := &fakeRuntime{}
	if fromDriverValue(rt, nil) != values.Nil {
		t.Fatal("fromDriverValue(nil) != values.Nil")
	}
	if fromDriverValue(rt, true) != values.Int(1) {
		t.Fatal("fromDriverValue(true) != Int(1)")
	}
	if fromDriverValue(rt, false) != values.Int(0) {
		t.Fatal("fromDriverValue(false) != Int(0)")
	}
}
