package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout es el formato de las fechas guardadas como TEXT en SQLite:
// UTC y ancho fijo, así el orden lexicográfico es el cronológico.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// DBTX lo cumplen *sql.DB y *sql.Tx; los repositorios leen con uno y
// persisten con el otro.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Dialect identifica el motor SQL configurado.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect valida el valor de DB_DRIVER.
func ParseDialect(driver string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(driver))); d {
	case SQLite, Postgres:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported db driver %q", driver)
	}
}

// DriverName es el nombre registrado en database/sql.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

// Rebind convierte los placeholders '?' al formato $n de Postgres.
// No entiende literales con '?' dentro; las consultas del repo no los usan.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// TimeArg adapta t al tipo de columna de fecha del dialecto.
func (d Dialect) TimeArg(t time.Time) interface{} {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(TimeLayout)
}

func (d Dialect) NullTimeArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return d.TimeArg(*t)
}

// Timestamp escanea fechas guardadas como TIMESTAMPTZ o como TEXT.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

func (ts *Timestamp) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*ts = Timestamp{}
		return nil
	case time.Time:
		ts.Time, ts.Valid = v.UTC(), true
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (ts *Timestamp) parse(s string) error {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	ts.Time, ts.Valid = t.UTC(), true
	return nil
}

// Ptr devuelve nil si la columna era NULL.
func (ts Timestamp) Ptr() *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
