package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/fahim22542/Testing-Projects/internal/filtertest"
)

// IssuesSuffix is appended to the results path for the invalid record file
const IssuesSuffix = ".issues"

func chainFields() []arrow.Field {
	fields := make([]arrow.Field, 0, filtertest.NumDimensions)
	for _, d := range filtertest.Dimensions {
		fields = append(fields, arrow.Field{Name: d.String(), Type: arrow.BinaryTypes.String})
	}
	return fields
}

// ResultsSchema has one row per tested chain
func ResultsSchema() *arrow.Schema {
	fields := []arrow.Field{
		{Name: "run_id", Type: arrow.BinaryTypes.String},
		{Name: "strategy", Type: arrow.BinaryTypes.String},
	}
	fields = append(fields, chainFields()...)
	fields = append(fields,
		arrow.Field{Name: "data_count", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "valid_records", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "invalid_records", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "pages_read", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "page_failures", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "truncated", Type: arrow.FixedWidthTypes.Boolean},
		arrow.Field{Name: "passed", Type: arrow.FixedWidthTypes.Boolean},
	)
	for _, d := range filtertest.Dimensions {
		fields = append(fields, arrow.Field{
			Name:     d.String() + "_compliance",
			Type:     arrow.PrimitiveTypes.Float64,
			Nullable: true,
		})
	}
	return arrow.NewSchema(fields, nil)
}

// IssuesSchema has one row per invalid record
func IssuesSchema() *arrow.Schema {
	fields := []arrow.Field{
		{Name: "run_id", Type: arrow.BinaryTypes.String},
	}
	fields = append(fields, chainFields()...)
	fields = append(fields,
		arrow.Field{Name: "record_name", Type: arrow.BinaryTypes.String},
		arrow.Field{Name: "record_code", Type: arrow.BinaryTypes.String},
	)
	for _, d := range filtertest.Dimensions {
		fields = append(fields, arrow.Field{Name: "record_" + d.String(), Type: arrow.BinaryTypes.String})
	}
	fields = append(fields, arrow.Field{Name: "issues", Type: arrow.ListOf(arrow.BinaryTypes.String)})
	return arrow.NewSchema(fields, nil)
}

// rowBuilder appends values to consecutive columns of a record builder
type rowBuilder struct {
	b   *array.RecordBuilder
	col int
}

func (r *rowBuilder) next() array.Builder {
	f := r.b.Field(r.col)
	r.col++
	return f
}

func (r *rowBuilder) str(v string) { r.next().(*array.StringBuilder).Append(v) }

func (r *rowBuilder) num(v int) { r.next().(*array.Int64Builder).Append(int64(v)) }

func (r *rowBuilder) flag(v bool) { r.next().(*array.BooleanBuilder).Append(v) }

func (r *rowBuilder) chain(c filtertest.Chain) {
	for _, d := range filtertest.Dimensions {
		r.str(c.Get(d))
	}
}

func (r *rowBuilder) end() { r.col = 0 }

// BuildResults converts chain results into an Arrow record. The caller
// releases it.
func BuildResults(rep *filtertest.RunReport, pool memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(pool, ResultsSchema())
	defer b.Release()

	row := &rowBuilder{b: b}
	for _, res := range rep.Results {
		row.str(rep.RunID)
		row.str(string(res.Strategy))
		row.chain(res.Chain)
		row.num(res.DataCount)
		row.num(res.Verification.ValidRecords)
		row.num(len(res.Verification.InvalidRecords))
		row.num(res.PagesRead)
		row.num(res.PageFailures)
		row.flag(res.Truncated)
		row.flag(res.Passed())
		for _, d := range filtertest.Dimensions {
			fb := row.next().(*array.Float64Builder)
			c, ok := res.Verification.FilterCompliance[d]
			if !ok || c.Total == 0 {
				fb.AppendNull()
				continue
			}
			fb.Append(c.Percentage)
		}
		row.end()
	}

	return b.NewRecord()
}

// BuildIssues converts every invalid record of the run into an Arrow record.
// The caller releases it.
func BuildIssues(rep *filtertest.RunReport, pool memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(pool, IssuesSchema())
	defer b.Release()

	row := &rowBuilder{b: b}
	for _, res := range rep.Results {
		for _, invalid := range res.Verification.InvalidRecords {
			row.str(rep.RunID)
			row.chain(res.Chain)
			row.str(invalid.Record.Name)
			row.str(invalid.Record.Code)
			for _, d := range filtertest.Dimensions {
				row.str(invalid.Record.Field(d))
			}
			lb := row.next().(*array.ListBuilder)
			lb.Append(true)
			vb := lb.ValueBuilder().(*array.StringBuilder)
			for _, issue := range invalid.Issues {
				vb.Append(issue)
			}
			row.end()
		}
	}

	return b.NewRecord()
}

// WriteIPC writes one record as an Arrow IPC file
func WriteIPC(w io.Writer, rec arrow.Record, pool memory.Allocator) error {
	writer, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write Arrow record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow writer: %w", err)
	}
	return nil
}

// IssuesPath derives the invalid record file from the results path
func IssuesPath(path string) string {
	if strings.HasSuffix(path, ".arrow") {
		return strings.TrimSuffix(path, ".arrow") + IssuesSuffix + ".arrow"
	}
	return path + IssuesSuffix
}

// WriteArrow exports chain results to path and invalid records to
// IssuesPath(path)
func WriteArrow(path string, rep *filtertest.RunReport) error {
	pool := memory.NewGoAllocator()

	results := BuildResults(rep, pool)
	defer results.Release()
	if err := writeIPCFile(path, results, pool); err != nil {
		return err
	}

	issues := BuildIssues(rep, pool)
	defer issues.Release()
	return writeIPCFile(IssuesPath(path), issues, pool)
}

func writeIPCFile(path string, rec arrow.Record, pool memory.Allocator) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteIPC(f, rec, pool); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
