package parser

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	_ "github.com/duckdb/duckdb-go/v2"
)

// excelIterator 基于 DuckDB 的表格文件解析器。
// 通过 st_read 读取第一个工作表，逐行产出记录。
type excelIterator struct {
	db       *sql.DB
	rows     *sql.Rows
	columns  []string
	warnings []string
}

func newExcelIterator(ctx context.Context, filePath string) (Iterator, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open duckdb session: %v", ErrFatalParse, err)
	}

	// 读取 Excel 需要 spatial 扩展
	if _, err := db.ExecContext(ctx, "INSTALL spatial; LOAD spatial;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to load spatial extension: %v", ErrFatalParse, err)
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM st_read(?)", filePath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to read spreadsheet: %v", ErrFatalParse, err)
	}

	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, fmt.Errorf("%w: failed to read spreadsheet columns: %v", ErrFatalParse, err)
	}

	return &excelIterator{
		db:      db,
		rows:    rows,
		columns: columns,
	}, nil
}

func (it *excelIterator) Next(ctx context.Context) (RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for it.rows.Next() {
		values := make([]interface{}, len(it.columns))
		pointers := make([]interface{}, len(it.columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := it.rows.Scan(pointers...); err != nil {
			it.warnings = append(it.warnings, fmt.Sprintf("malformed spreadsheet row: %v", err))
			continue
		}

		record := make(RawRecord, len(it.columns))
		for i, col := range it.columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		return record, nil
	}

	if err := it.rows.Err(); err != nil {
		it.warnings = append(it.warnings, fmt.Sprintf("spreadsheet read aborted: %v", err))
	}
	return nil, io.EOF
}

func (it *excelIterator) Warnings() []string {
	return it.warnings
}

func (it *excelIterator) Close() error {
	it.rows.Close()
	return it.db.Close()
}
