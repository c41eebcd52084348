package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SupportedExtensions lists the workbook formats the importer can open.
var SupportedExtensions = []string{"xls", "xlsx"}

// RowReader walks the rows of the first worksheet of a workbook.
type RowReader interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// ValidateFilename rejects uploads whose extension is not a supported workbook format.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Message: "A filename is required!"}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, s := range SupportedExtensions {
		if ext == s {
			return nil
		}
	}
	return &ValidationError{Message: fmt.Sprintf("File not supported!, only the following extensions are supported: %s.", strings.Join(SupportedExtensions, ", "))}
}

// OpenWorkbook picks a reader by file extension. Any failure to parse the
// content is reported as ErrMalformedWorkbook.
func OpenWorkbook(name string, content []byte) (RowReader, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return openXLSX(content)
	case ".xls":
		return openXLS(content)
	default:
		return nil, fmt.Errorf("%w: unsupported extension %q", ErrMalformedWorkbook, filepath.Ext(name))
	}
}

type xlsxReader struct {
	file     *excelize.File
	rows     *excelize.Rows
	date1904 bool
	row      Row
	err      error
}

func openXLSX(content []byte) (RowReader, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedWorkbook)
	}
	props, err := f.GetWorkbookProps()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	return &xlsxReader{
		file:     f,
		rows:     rows,
		date1904: props.Date1904 != nil && *props.Date1904,
	}, nil
}

func (r *xlsxReader) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	// raw values keep dates as serial numbers instead of locale formatted text
	cols, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		r.err = fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
		return false
	}
	r.row = make(Row, len(cols))
	for i, v := range cols {
		r.row[i] = classify(v)
		if r.row[i].Kind == CellNumber {
			r.row[i].Date1904 = r.date1904
		}
	}
	return true
}

func (r *xlsxReader) Row() Row { return r.row }

func (r *xlsxReader) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	return nil
}

func (r *xlsxReader) Close() error {
	r.rows.Close()
	return r.file.Close()
}
