package adapter

import (
	"net/url"

	_ "modernc.org/sqlite" // register sqlite driver
)

func init() {
	Register(Adapter{
		Name:          "sqlite",
		Driver:        "sqlite",
		Kind:          KindOther,
		DefaultSchema: "main",
		DSN:           fileDSN,
		Placeholder:   func(int) string { return "?" },
	})
}

// fileDSN extracts the file path from a file-based database URL.
// Accepts sqlite:relative.db, sqlite::memory: and sqlite:///abs/path.db.
func fileDSN(u *url.URL) (string, error) {
	if u.Opaque != "" {
		return u.Opaque, nil
	}
	return u.Host + u.Path, nil
}
