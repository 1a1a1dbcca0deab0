// Package export writes chat result rows to CSV, Parquet or JSON files,
// locally or in S3-compatible object storage. Rows are materialized in an
// in-memory DuckDB database and written with COPY.
package export

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	duckdb "github.com/duckdb/duckdb-go/v2"

	"invoice-analytics/internal/domain"
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

const stagingTable = "results"

// ErrNoColumns is returned when there is nothing to export.
var ErrNoColumns = errors.New("export: result has no columns")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatParquet, FormatJSON:
		return f, nil
	default:
		return "", domain.ErrValidation("unsupported export format %q (want csv, parquet or json)", s)
	}
}

// FormatFromPath derives the format from a destination's file extension.
func FormatFromPath(dest string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(dest), ".")
	if ext == "" {
		return "", domain.ErrValidation("cannot infer export format from %q", dest)
	}
	if ext == "ndjson" || ext == "jsonl" {
		return FormatJSON, nil
	}
	return ParseFormat(ext)
}

// ContentType returns the MIME type used when serving or uploading f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/x-ndjson"
	}
}

// Result describes a finished export.
type Result struct {
	Format      Format `json:"format"`
	Destination string `json:"destination"`
	Rows        int    `json:"rows"`
	Bytes       int64  `json:"bytes"`
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithUploader enables s3:// destinations.
func WithUploader(u Uploader) Option {
	return func(e *Exporter) { e.uploader = u }
}

// WithLogger sets the exporter's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// Exporter writes result sets to files.
type Exporter struct {
	uploader Uploader
	logger   *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "export")
	return e
}

// CanUpload reports whether s3:// destinations are available.
func (e *Exporter) CanUpload() bool { return e.uploader != nil }

// Export writes rows to dest. A dest of the form s3://bucket/key is staged
// in a temporary file and uploaded; anything else is a local path.
func (e *Exporter) Export(ctx context.Context, columns []string, rows []domain.Row, format Format, dest string) (*Result, error) {
	if !strings.HasPrefix(dest, "s3://") {
		n, err := e.WriteFile(ctx, columns, rows, format, dest)
		if err != nil {
			return nil, err
		}
		return &Result{Format: format, Destination: dest, Rows: len(rows), Bytes: n}, nil
	}

	if e.uploader == nil {
		return nil, domain.ErrValidation("S3 export is not configured")
	}
	bucket, key, err := parseS3Path(dest)
	if err != nil {
		return nil, domain.ErrValidation("%v", err)
	}

	dir, err := os.MkdirTemp("", "invoice-export-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	staged := filepath.Join(dir, "result."+string(format))
	n, err := e.WriteFile(ctx, columns, rows, format, staged)
	if err != nil {
		return nil, err
	}
	if err := upload(ctx, e.uploader, staged, bucket, key, format.ContentType()); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "uploaded export", "bucket", bucket, "key", key, "rows", len(rows), "bytes", n)
	return &Result{Format: format, Destination: dest, Rows: len(rows), Bytes: n}, nil
}

// WriteFile writes rows to a local file and returns its size.
func (e *Exporter) WriteFile(ctx context.Context, columns []string, rows []domain.Row, format Format, path string) (int64, error) {
	if len(columns) == 0 {
		return 0, ErrNoColumns
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return 0, err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return 0, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire duckdb connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	types := inferColumnTypes(columns, rows)
	if _, err := conn.ExecContext(ctx, createTableSQL(columns, types)); err != nil {
		return 0, fmt.Errorf("create staging table: %w", err)
	}
	if err := appendRows(conn, columns, types, rows); err != nil {
		return 0, err
	}

	copySQL := fmt.Sprintf("COPY %s TO %s (%s)", stagingTable, quoteLiteral(path), copyOptions(format))
	if _, err := conn.ExecContext(ctx, copySQL); err != nil {
		return 0, fmt.Errorf("copy to %s: %w", format, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat export: %w", err)
	}
	e.logger.DebugContext(ctx, "wrote export", "path", path, "format", format, "rows", len(rows))
	return info.Size(), nil
}

func appendRows(conn *sql.Conn, columns []string, types []columnType, rows []domain.Row) error {
	return conn.Raw(func(raw any) error {
		driverConn, ok := raw.(driver.Conn)
		if !ok {
			return fmt.Errorf("unexpected raw conn type %T", raw)
		}

		appender, err := duckdb.NewAppenderFromConn(driverConn, "", stagingTable)
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}
		defer func() { _ = appender.Close() }()

		values := make([]driver.Value, len(columns))
		for i, row := range rows {
			for j, col := range columns {
				v, err := toDriverValue(row[col], types[j])
				if err != nil {
					return fmt.Errorf("row %d column %q: %w", i, col, err)
				}
				values[j] = v
			}
			if err := appender.AppendRow(values...); err != nil {
				return fmt.Errorf("append row %d: %w", i, err)
			}
		}
		return appender.Flush()
	})
}

func copyOptions(f Format) string {
	switch f {
	case FormatCSV:
		return "FORMAT csv, HEADER"
	case FormatParquet:
		return "FORMAT parquet"
	default:
		return "FORMAT json"
	}
}

func createTableSQL(columns []string, types []columnType) string {
	names := stagingColumnNames(columns)
	defs := make([]string, len(names))
	for i, name := range names {
		defs[i] = quoteIdent(name) + " " + string(types[i])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", stagingTable, strings.Join(defs, ", "))
}

// stagingColumnNames makes result column names usable as DuckDB columns.
// DuckDB compares identifiers case-insensitively, so "a" and "A" collide;
// later duplicates get a numeric suffix ("A_2"). Empty names become
// "column".
func stagingColumnNames(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, c := range columns {
		if c == "" {
			c = "column"
		}
		name := c
		for n := 2; seen[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", c, n)
		}
		seen[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// columnType is the DuckDB type a result column is staged as.
type columnType string

const (
	typeBigint  columnType = "BIGINT"
	typeDouble  columnType = "DOUBLE"
	typeBoolean columnType = "BOOLEAN"
	typeVarchar columnType = "VARCHAR"
)

// inferColumnTypes picks the narrowest type that holds every non-null value
// of each column. Mixed or nested values fall back to VARCHAR.
func inferColumnTypes(columns []string, rows []domain.Row) []columnType {
	out := make([]columnType, len(columns))
	for i, col := range columns {
		var t columnType
		for _, row := range rows {
			v := row[col]
			if v == nil {
				continue
			}
			t = widen(t, valueType(v))
			if t == typeVarchar {
				break
			}
		}
		if t == "" {
			t = typeVarchar
		}
		out[i] = t
	}
	return out
}

func valueType(v any) columnType {
	switch x := v.(type) {
	case bool:
		return typeBoolean
	case int, int32, int64:
		return typeBigint
	case float32, float64:
		return typeDouble
	case json.Number:
		if _, err := x.Int64(); err == nil {
			return typeBigint
		}
		if _, err := x.Float64(); err == nil {
			return typeDouble
		}
		return typeVarchar
	default:
		return typeVarchar
	}
}

func widen(current, next columnType) columnType {
	switch {
	case current == "" || current == next:
		return next
	case (current == typeBigint && next == typeDouble) || (current == typeDouble && next == typeBigint):
		return typeDouble
	default:
		return typeVarchar
	}
}

func toDriverValue(v any, t columnType) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case typeBoolean:
		return v.(bool), nil
	case typeBigint:
		switch x := v.(type) {
		case json.Number:
			return x.Int64()
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		}
	case typeDouble:
		switch x := v.(type) {
		case json.Number:
			return x.Float64()
		case float32:
			return float64(x), nil
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	}
	return stringify(v)
}

func stringify(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(x), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("encode value: %w", err)
		}
		return string(b), nil
	}
}
