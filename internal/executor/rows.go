package executor

import (
	"database/sql"
	"strconv"
	"strings"
)

// normalizeRows materializes the full result set, coercing driver-raw
// values by the database's reported column type. MySQL in particular
// hands back []byte for nearly everything.
func normalizeRows(rows *sql.Rows) ([]string, [][]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		types = nil // type info is optional; raw values pass through
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}

		for i, v := range values {
			dbType := ""
			if types != nil && i < len(types) && types[i] != nil {
				dbType = types[i].DatabaseTypeName()
			}
			values[i] = coerceValue(v, dbType)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return cols, data, nil
}

// coerceValue converts []byte driver values to the type the column
// reports. Anything already typed by the driver passes through.
func coerceValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}

	s := string(b)
	switch strings.ToUpper(dbType) {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT", "INT2", "INT4", "INT8":
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC", "FLOAT4", "FLOAT8":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "BOOL", "BOOLEAN":
		if t, err := strconv.ParseBool(s); err == nil {
			return t
		}
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return b
	}
	return s
}
