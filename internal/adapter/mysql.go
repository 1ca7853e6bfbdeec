package adapter

import (
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql" // register mysql driver
)

func init() {
	Register(Adapter{
		Name:   "mysql",
		Driver: "mysql",
		Kind:   KindMySQL,
		DSN:    mysqlDSN,
		TimeoutSQL: func(d time.Duration) string {
			return fmt.Sprintf("SET max_execution_time = %d", d.Milliseconds())
		},
		Placeholder: func(int) string { return "?" },
	})
}

// mysqlDSN converts a mysql:// URL into the go-sql-driver DSN form
// user:pass@tcp(host:port)/dbname?params.
func mysqlDSN(u *url.URL) (string, error) {
	host := u.Host
	if u.Port() == "" {
		host += ":3306"
	}

	var userinfo string
	if u.User != nil {
		userinfo = u.User.Username()
		if pass, ok := u.User.Password(); ok {
			userinfo += ":" + pass
		}
		userinfo += "@"
	}

	dsn := fmt.Sprintf("%stcp(%s)/%s", userinfo, host, DatabaseName(u))
	if u.RawQuery != "" {
		dsn += "?" + u.RawQuery
	}
	return dsn, nil
}
