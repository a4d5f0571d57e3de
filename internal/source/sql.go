package source

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hasirciogluhq/sortbench/internal/dataset"
	"github.com/hasirciogluhq/sortbench/internal/logger"
)

const pingTimeout = 10 * time.Second

// SQL loads datasets with queries against a database/sql pool.
type SQL struct {
	driver string
	db     *sql.DB
}

// DriverName maps user-facing driver names to registered database/sql drivers.
func DriverName(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return "mysql", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", name)
	}
}

// Open connects to dsn and verifies the connection with a ping.
func Open(ctx context.Context, driver, dsn string) (*SQL, error) {
	name, err := DriverName(driver)
	if err != nil {
		return nil, err
	}

	if name == "mysql" {
		// Dates must come back as time.Time, not raw bytes.
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		dsn = cfg.FormatDSN()
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	if name == "sqlite" {
		// An in-memory database exists per connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", name, err)
	}

	logger.Debug("Connected to dataset database", "driver", name)
	return &SQL{driver: name, db: db}, nil
}

// Load runs query and converts every row into a record with the result
// columns in select order. NULL columns are left out of the record.
func (s *SQL) Load(ctx context.Context, query string) (dataset.Dataset, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var ds dataset.Dataset
	values := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(ds), err)
		}
		fields := make([]dataset.Field, 0, len(types))
		for i, v := range values {
			if v == nil {
				continue
			}
			val, err := convert(v, types[i].DatabaseTypeName())
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", len(ds), types[i].Name(), err)
			}
			fields = append(fields, dataset.Field{Name: types[i].Name(), Value: val})
		}
		ds = append(ds, dataset.NewRecord(fields...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}

	logger.Debug("Loaded dataset", "driver", s.driver, "rows", len(ds))
	if ds == nil {
		ds = dataset.Dataset{}
	}
	return ds, nil
}

// Query binds query to s so the pair can be used as a Source.
func (s *SQL) Query(query string) Source {
	return &boundQuery{db: s, query: query}
}

func (s *SQL) Close() error {
	return s.db.Close()
}

type boundQuery struct {
	db    *SQL
	query string
}

func (q *boundQuery) Load(ctx context.Context) (dataset.Dataset, error) {
	return q.db.Load(ctx, q.query)
}

func (q *boundQuery) Close() error { return q.db.Close() }

// convert maps a driver value onto the dataset value model. Text from numeric
// columns is parsed according to the column's declared type.
func convert(v any, typeName string) (dataset.Value, error) {
	switch x := v.(type) {
	case int64:
		return dataset.IntValue(x), nil
	case float64:
		return dataset.FloatValue(x), nil
	case bool:
		if x {
			return dataset.IntValue(1), nil
		}
		return dataset.IntValue(0), nil
	case time.Time:
		return dataset.DateValue(x, ""), nil
	case []byte:
		return fromText(string(x), typeName)
	case string:
		return fromText(x, typeName)
	default:
		return dataset.Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func fromText(s, typeName string) (dataset.Value, error) {
	switch numericType(typeName) {
	case dataset.KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return dataset.Value{}, fmt.Errorf("invalid %s value %q: %w", typeName, s, err)
		}
		return dataset.IntValue(i), nil
	case dataset.KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return dataset.Value{}, fmt.Errorf("invalid %s value %q: %w", typeName, s, err)
		}
		return dataset.FloatValue(f), nil
	}
	return dataset.ParseText(s), nil
}

func numericType(typeName string) dataset.Kind {
	t := strings.TrimPrefix(strings.ToUpper(typeName), "UNSIGNED ")
	switch t {
	case "INT", "INT2", "INT4", "INT8", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT":
		return dataset.KindInt
	case "DECIMAL", "NUMERIC", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "REAL":
		return dataset.KindFloat
	}
	return dataset.KindString
}
