package adapter

import (
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx stdlib driver
)

func init() {
	Register(postgresAdapter("postgres", KindPostgres))
	Register(postgresAdapter("postgresql", KindPostgres))
	Register(postgresAdapter("redshift", KindRedshift))
}

func postgresAdapter(name string, kind Kind) Adapter {
	return Adapter{
		Name:          name,
		Driver:        "pgx",
		Kind:          kind,
		DefaultSchema: "public",
		DSN:           postgresDSN,
		TimeoutSQL: func(d time.Duration) string {
			return fmt.Sprintf("SET statement_timeout = %d", d.Milliseconds())
		},
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
}

// postgresDSN passes the URL through to pgx, which accepts URL-form DSNs
// directly. Redshift URLs get their scheme rewritten since the wire
// protocol is postgres.
func postgresDSN(u *url.URL) (string, error) {
	cp := *u
	if cp.Scheme == "redshift" || cp.Scheme == "postgresql" {
		cp.Scheme = "postgres"
	}
	return cp.String(), nil
}
