package adapter

import (
	_ "github.com/marcboeker/go-duckdb" // register duckdb driver
)

func init() {
	Register(Adapter{
		Name:          "duckdb",
		Driver:        "duckdb",
		Kind:          KindOther,
		DefaultSchema: "main",
		DSN:           fileDSN,
		Placeholder:   func(int) string { return "?" },
	})
}
