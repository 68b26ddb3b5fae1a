package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names a database/sql driver the store knows how to talk to.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// Validate rejects drivers that have no schema or placeholder support here.
func (d Dialect) Validate() error {
	switch d {
	case SQLite, Postgres:
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q", string(d))
	}
}

// Rebind rewrites ? placeholders into the dialect's bind syntax.
// Queries in this repo never contain a literal question mark.
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
