package data

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

const (
	chunkSize = 1 << 12

	CSVExt     = ".csv"
	ParquetExt = ".parquet"
)

// LoadOptions controls how a dataset file is turned into a Table.
type LoadOptions struct {
	// Numeric columns are parsed as float64; every other CSV column is a string.
	Numeric []string
	// NullValues are the CSV tokens read as null.
	NullValues []string
	// Columns restricts and orders the output. Empty keeps every column.
	Columns []string
}

// Load reads a CSV or Parquet file, chosen by extension.
func Load(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ParquetExt:
		t, err = LoadParquet(ctx, path)
	default:
		t, err = LoadCSV(path, opts)
	}
	if err != nil {
		return nil, err
	}
	if len(opts.Columns) > 0 {
		return t.Select(opts.Columns...)
	}
	return t, nil
}

// LoadCSV reads a CSV file with a header row.
func LoadCSV(path string, opts LoadOptions) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	header, err := csv.NewReader(bytes.NewReader(raw)).Read()
	if err != nil {
		return nil, fmt.Errorf("reading header of %q: %w", path, err)
	}

	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if slices.Contains(opts.Numeric, name) {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields[i] = arrow.Field{Name: name, Type: typ, Nullable: true}
	}

	nulls := opts.NullValues
	if len(nulls) == 0 {
		nulls = arrowcsv.DefaultNullValues
	}
	reader := arrowcsv.NewReader(bytes.NewReader(raw), arrow.NewSchema(fields, nil),
		arrowcsv.WithHeader(true),
		arrowcsv.WithNullReader(true, nulls...),
		arrowcsv.WithChunk(chunkSize),
	)
	defer reader.Release()

	b := newTableBuilder()
	for reader.Next() {
		if err := reader.Err(); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := b.append(reader.Record()); err != nil {
			return nil, fmt.Errorf("converting %q: %w", path, err)
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return b.build(header)
}

// LoadParquet reads every column of a Parquet file.
func LoadParquet(ctx context.Context, path string) (*Table, error) {
	allocator := memory.NewGoAllocator()
	inFileReader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %q: %w", path, err)
	}
	defer inFileReader.Close()

	inReader, err := pqarrow.NewFileReader(inFileReader,
		pqarrow.ArrowReadProperties{BatchSize: chunkSize},
		allocator,
	)
	if err != nil {
		return nil, fmt.Errorf("creating pqarrow FileReader: %w", err)
	}

	schema, err := inReader.Schema()
	if err != nil {
		return nil, fmt.Errorf("getting schema: %w", err)
	}
	names := make([]string, len(schema.Fields()))
	for i, f := range schema.Fields() {
		names[i] = f.Name
	}

	recordReader, err := inReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getting record reader: %w", err)
	}
	defer recordReader.Release()

	b := newTableBuilder()
	var record arrow.Record
	for record, err = recordReader.Read(); err == nil; record, err = recordReader.Read() {
		if err := b.append(record); err != nil {
			return nil, fmt.Errorf("converting %q: %w", path, err)
		}
	}
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return b.build(names)
}

// WriteParquet writes t to path. Numeric columns become nullable float64,
// everything else nullable strings.
func WriteParquet(path string, t *Table) error {
	fields := make([]arrow.Field, 0, t.NumCols())
	for _, name := range t.names {
		typ := arrow.DataType(arrow.BinaryTypes.String)
		if t.IsNumeric(name) {
			typ = arrow.PrimitiveTypes.Float64
		}
		fields = append(fields, arrow.Field{Name: name, Type: typ, Nullable: true})
	}
	schema := arrow.NewSchema(fields, nil)

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	writer, err := pqarrow.NewFileWriter(
		schema,
		out,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy)),
		pqarrow.DefaultWriterProps(),
	)
	if err != nil {
		_ = out.Close()
		return fmt.Errorf("creating writer: %w", err)
	}

	recordBuilder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer recordBuilder.Release()

	for j, field := range schema.Fields() {
		col := t.cols[field.Name]
		switch b := recordBuilder.Field(j).(type) {
		case *array.Float64Builder:
			for _, v := range col {
				if f, ok := v.Float(); ok {
					b.Append(f)
				} else {
					b.AppendNull()
				}
			}
		case *array.StringBuilder:
			for _, v := range col {
				if v.IsNull() {
					b.AppendNull()
				} else {
					b.Append(v.String())
				}
			}
		default:
			_ = writer.Close()
			return fmt.Errorf("unsupported field type %s", field.Type)
		}
	}

	record := recordBuilder.NewRecord()
	defer record.Release()
	if err := writer.Write(record); err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing writer: %w", err)
	}
	return nil
}

// tableBuilder accumulates arrow record batches column by column.
type tableBuilder struct {
	cols map[string][]Value
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{cols: make(map[string][]Value)}
}

func (b *tableBuilder) append(rec arrow.Record) error {
	n := int(rec.NumRows())
	for j := 0; j < int(rec.NumCols()); j++ {
		name := rec.ColumnName(j)
		col := b.cols[name]
		switch a := rec.Column(j).(type) {
		case *array.Float64:
			for i := range n {
				if a.IsNull(i) {
					col = append(col, Null)
				} else {
					col = append(col, Num(a.Value(i)))
				}
			}
		case *array.Int64:
			for i := range n {
				if a.IsNull(i) {
					col = append(col, Null)
				} else {
					col = append(col, Num(float64(a.Value(i))))
				}
			}
		case *array.String:
			for i := range n {
				if a.IsNull(i) {
					col = append(col, Null)
				} else {
					col = append(col, Str(a.Value(i)))
				}
			}
		case *array.LargeString:
			for i := range n {
				if a.IsNull(i) {
					col = append(col, Null)
				} else {
					col = append(col, Str(a.Value(i)))
				}
			}
		default:
			return &ColumnError{Column: name, Err: fmt.Errorf("arrow type %s: %w", a.DataType(), ErrColumnType)}
		}
		b.cols[name] = col
	}
	return nil
}

func (b *tableBuilder) build(names []string) (*Table, error) {
	seen := make(map[string]struct{}, len(names))
	t := NewTable(0)
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		col := b.cols[name]
		if col == nil {
			col = []Value{}
		}
		if err := t.Set(name, col); err != nil {
			return nil, err
		}
	}
	return t, nil
}
