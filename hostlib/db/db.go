// Package db is a demonstration host module (spec §1: "application authors
// who want to expose host operations to scripts"): db.open(driver, dsn)
// over database/sql, adapted from the teacher's pkg/pdo Driver/Conn
// abstraction but trimmed to the three engines this module's go.mod
// carries drivers for.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/wudi/gscript/errs"
	"github.com/wudi/gscript/types"
	"github.com/wudi/gscript/values"
	"github.com/wudi/gscript/vm"
)

// Register wires db.open into m.Natives (host calls named "db.open", per
// the compiler's ident.method → CallHost dispatch for an undeclared
// namespace identifier).
func Register(m *vm.VirtualMachine) {
	m.RegisterHost("db.open", hostOpen)
}

func hostOpen(hc vm.HostContext, args []values.Value) (values.Value, error) {
	if len(args) != 2 {
		return values.Nil, errs.NewRuntime(errs.ErrTypeMismatch, "db.open(driver, dsn) takes exactly 2 arguments, got %d", len(args))
	}
	driver, err := hc.StringOf(args[0])
	if err != nil {
		return values.Nil, err
	}
	dsnStr, err := hc.StringOf(args[1])
	if err != nil {
		return values.Nil, err
	}

	parsed, err := parseDSN(driver + ":" + dsnStr)
	if err != nil {
		return values.Nil, err
	}

	var driverName, driverDSN string
	switch driver {
	case "mysql":
		driverName, driverDSN = "mysql", mysqlDriverDSN(parsed)
	case "pgsql", "postgres":
		driverName, driverDSN = "postgres", pgDriverDSN(parsed)
	case "sqlite":
		driverName, driverDSN = "sqlite", sqliteDriverDSN(parsed)
	default:
		return values.Nil, errs.NewRuntime(errs.ErrTypeMismatch, "db.open: unsupported driver %q (want mysql, pgsql, or sqlite)", driver)
	}

	sqlDB, err := sql.Open(driverName, driverDSN)
	if err != nil {
		return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db.open: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db.open: %v", err)
	}

	return hc.NewObject(func(id int64) types.Object {
		return &ConnectionObject{id: id, driver: driver, db: sqlDB}
	}), nil
}

// ConnectionObject is the handle value db.open returns: a live *sql.DB plus
// the driver name it was opened with, dispatched through ConnectionType's
// query/exec/ping/close methods like any other built-in object (spec §4.6).
type ConnectionObject struct {
	id     int64
	driver string
	db     *sql.DB
}

func (c *ConnectionObject) ObjectID() int64   { return c.id }
func (c *ConnectionObject) Type() *types.Type { return ConnectionType }

var ConnectionType = buildConnectionType()

func buildConnectionType() *types.Type {
	t := types.NewType("DBConnection")
	t.Str = func(self types.Object, _ types.ValueStrInvoker) (string, error) {
		c := self.(*ConnectionObject)
		return fmt.Sprintf("<db connection %s>", c.driver), nil
	}

	// query(sql, args...) -> List of rows, each row a List of column
	// values in column order. Rows-as-Dict would be the more natural
	// shape, but this module's Dict keys are restricted to ints (see
	// types.DictObject), so a string-keyed row can't be a Dict; a
	// positional List is the type system's closest fit.
	t.DefineVariadicMethod("query", 1, func(self types.Object, args []values.Value, rt types.Runtime) (values.Value, error) {
		c := self.(*ConnectionObject)
		query, err := rt.StringOf(args[0])
		if err != nil {
			return values.Nil, err
		}
		params, err := toDriverArgs(rt, args[1:])
		if err != nil {
			return values.Nil, err
		}
		rows, err := c.db.Query(query, params...)
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db query: %v", err)
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db query: %v", err)
		}

		var out []values.Value
		for rows.Next() {
			scanned := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range scanned {
				ptrs[i] = &scanned[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db query: %v", err)
			}
			rowVals := make([]values.Value, len(cols))
			for i, v := range scanned {
				rowVals[i] = fromDriverValue(rt, v)
			}
			out = append(out, rt.NewList(rowVals))
		}
		if err := rows.Err(); err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db query: %v", err)
		}
		return rt.NewList(out), nil
	})

	t.DefineVariadicMethod("exec", 1, func(self types.Object, args []values.Value, rt types.Runtime) (values.Value, error) {
		c := self.(*ConnectionObject)
		query, err := rt.StringOf(args[0])
		if err != nil {
			return values.Nil, err
		}
		params, err := toDriverArgs(rt, args[1:])
		if err != nil {
			return values.Nil, err
		}
		res, err := c.db.Exec(query, params...)
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db exec: %v", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db exec: %v", err)
		}
		return values.Int(affected), nil
	})

	t.DefineMethod("ping", 0, func(self types.Object, _ []values.Value, _ types.Runtime) (values.Value, error) {
		c := self.(*ConnectionObject)
		if err := c.db.Ping(); err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db ping: %v", err)
		}
		return values.Int(1), nil
	})

	t.DefineMethod("close", 0, func(self types.Object, _ []values.Value, _ types.Runtime) (values.Value, error) {
		c := self.(*ConnectionObject)
		if err := c.db.Close(); err != nil {
			return values.Nil, errs.NewRuntime(errs.ErrHostOperationFailed, "db close: %v", err)
		}
		return values.Int(0), nil
	})

	return t
}

// toDriverArgs converts script Values bound as query parameters into
// database/sql driver args. Only scalar values make sense as bind
// parameters — a List/Dict/Class/etc. argument is a caller error.
func toDriverArgs(rt types.Runtime, args []values.Value) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		switch {
		case a.IsNil():
			out[i] = nil
		case a.IsInt():
			out[i] = a.Payload
		case a.IsString():
			s, err := rt.StringOf(a)
			if err != nil {
				return nil, err
			}
			out[i] = s
		default:
			return nil, errs.NewRuntime(errs.ErrTypeMismatch, "db: query parameter %d must be Nil, Int, or String", i)
		}
	}
	return out, nil
}

// fromDriverValue converts one scanned database/sql column value into a
// script Value. This language has no Float tag (values.Tag covers Nil, Int,
// String, Ref, Function, Class and Module), so a float/decimal column renders as its
// string form rather than losing precision to a narrowing Int conversion.
func fromDriverValue(rt types.Runtime, v any) values.Value {
	switch x := v.(type) {
	case nil:
		return values.Nil
	case int64:
		return values.Int(x)
	case float64:
		return rt.NewString(fmt.Sprintf("%v", x))
	case bool:
		if x {
			return values.Int(1)
		}
		return values.Int(0)
	case []byte:
		return rt.NewString(string(x))
	case string:
		return rt.NewString(x)
	default:
		return rt.NewString(fmt.Sprintf("%v", x))
	}
}
