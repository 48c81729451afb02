package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// csvIterator 流式 CSV 解析器。
// 首行作为表头，坏行跳过并记录告警而不中断解析。
type csvIterator struct {
	file     *os.File
	reader   *csv.Reader
	header   []string
	line     int
	warnings []string
}

func newCSVIterator(filePath string) (Iterator, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: csv file is empty", ErrFatalParse)
		}
		return nil, fmt.Errorf("%w: failed to read csv header: %v", ErrFatalParse, err)
	}

	return &csvIterator{
		file:   file,
		reader: reader,
		header: header,
		line:   1,
	}, nil
}

func (it *csvIterator) Next(ctx context.Context) (RawRecord, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := it.reader.Read()
		if err == io.EOF {
			return nil, io.EOF
		}
		it.line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				it.warnings = append(it.warnings, fmt.Sprintf("line %d: malformed csv row: %v", it.line, err))
				continue
			}
			// 读取中断，提前结束序列
			it.warnings = append(it.warnings, fmt.Sprintf("line %d: read aborted: %v", it.line, err))
			return nil, io.EOF
		}

		if len(row) != len(it.header) {
			it.warnings = append(it.warnings,
				fmt.Sprintf("line %d: expected %d fields, got %d", it.line, len(it.header), len(row)))
			continue
		}

		record := make(RawRecord, len(it.header))
		for i, key := range it.header {
			record[key] = row[i]
		}
		return record, nil
	}
}

func (it *csvIterator) Warnings() []string {
	return it.warnings
}

func (it *csvIterator) Close() error {
	return it.file.Close()
}
