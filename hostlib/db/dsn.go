package db

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wudi/gscript/errs"
)

// DSN is a parsed "driver:key=value;..." connection string (adapted from
// the teacher's pkg/pdo.DSN: here username/password live in the DSN itself
// since db.open(driver, dsn) takes no separate credential arguments).
type DSN struct {
	Driver   string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
}

// parseDSN parses:
//
//	mysql:host=localhost;port=3306;dbname=test;user=root;password=secret
//	pgsql:host=localhost;port=5432;dbname=test;user=postgres
//	sqlite:/path/to/database.db  (or sqlite::memory:)
func parseDSN(raw string) (*DSN, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return nil, errs.NewRuntime(errs.ErrTypeMismatch, "invalid dsn %q: expected \"driver:...\"", raw)
	}

	d := &DSN{Driver: parts[0], Options: make(map[string]string)}

	if d.Driver == "sqlite" {
		d.Database = parts[1]
		return d, nil
	}

	for _, pair := range strings.Split(parts[1], ";") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, value := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "host", "hostname":
			d.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return nil, errs.NewRuntime(errs.ErrTypeMismatch, "invalid dsn port %q", value)
			}
			d.Port = port
		case "dbname", "database":
			d.Database = value
		case "user", "username":
			d.Username = value
		case "password", "pass":
			d.Password = value
		default:
			d.Options[key] = value
		}
	}

	if d.Port == 0 {
		switch d.Driver {
		case "mysql":
			d.Port = 3306
		case "pgsql", "postgres":
			d.Port = 5432
		}
	}
	return d, nil
}

// mysqlDriverDSN renders d as a go-sql-driver/mysql DSN:
// user:password@tcp(host:port)/database?opt=val&...
func mysqlDriverDSN(d *DSN) string {
	var b strings.Builder
	if d.Username != "" {
		b.WriteString(d.Username)
		if d.Password != "" {
			b.WriteString(":")
			b.WriteString(d.Password)
		}
		b.WriteString("@")
	}
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	b.WriteString(fmt.Sprintf("tcp(%s:%d)/%s", host, d.Port, d.Database))
	if len(d.Options) > 0 {
		b.WriteString("?")
		first := true
		for k, v := range d.Options {
			if !first {
				b.WriteString("&")
			}
			first = false
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// pgDriverDSN renders d as a lib/pq DSN: "host=... port=... user=... ...".
func pgDriverDSN(d *DSN) string {
	host := d.Host
	if host == "" {
		host = "localhost"
	}
	params := []string{fmt.Sprintf("host=%s", host), fmt.Sprintf("port=%d", d.Port)}
	if d.Username != "" {
		params = append(params, fmt.Sprintf("user=%s", d.Username))
	}
	if d.Password != "" {
		params = append(params, fmt.Sprintf("password=%s", d.Password))
	}
	if d.Database != "" {
		params = append(params, fmt.Sprintf("dbname=%s", d.Database))
	}
	sslSet := false
	for k := range d.Options {
		if k == "sslmode" {
			sslSet = true
		}
		params = append(params, fmt.Sprintf("%s=%s", k, d.Options[k]))
	}
	if !sslSet {
		params = append(params, "sslmode=disable")
	}
	return strings.Join(params, " ")
}

// sqliteDriverDSN renders d as a modernc.org/sqlite DSN: the file path
// directly, or a shared in-memory database for ":memory:"/empty.
func sqliteDriverDSN(d *DSN) string {
	if d.Database == "" || d.Database == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return d.Database
}
