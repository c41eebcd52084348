package ingest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/richardlehane/mscfb"
	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// BIFF record ids read by scanBIFF
const (
	biffFormula    = 0x0006
	biffEOF        = 0x000A
	biffDateMode   = 0x0022
	biffBoundSheet = 0x0085
	biffString     = 0x0207
	biffBOF        = 0x0809

	biff8Version = 0x0600
)

// xlsReader serves the rows of the first worksheet of a legacy BIFF workbook.
// The whole sheet is decoded on open.
type xlsReader struct {
	rows []Row
	next int
	row  Row
}

func openXLS(content []byte) (reader RowReader, err error) {
	// both parsers slice record data without bounds checks on truncated files
	defer func() {
		if p := recover(); p != nil {
			reader, err = nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, p)
		}
	}()

	scan, err := scanBIFF(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}
	if wb.GetNumberSheets() == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedWorkbook)
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWorkbook, err)
	}

	cells := &xlsCells{wb: &wb, date1904: scan.date1904, dates: map[int]bool{}}

	n := sheet.GetNumberRows()
	if scan.rows > n {
		n = scan.rows
	}
	rows := make([]Row, n)
	for i := range rows {
		src, err := sheet.GetRow(i)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrMalformedWorkbook, i+1, err)
		}
		cols := src.GetCols()
		row := make(Row, len(cols))
		for j, cd := range cols {
			row[j] = cells.cell(cd)
		}
		rows[i] = row
	}

	// formula cells are invisible to the cell parser, their cached results
	// come from the record scan
	for _, f := range scan.formulas {
		row := rows[f.row]
		for len(row) <= f.col {
			row = append(row, NullCell())
		}
		row[f.col] = cells.formula(f)
		rows[f.row] = row
	}

	return &xlsReader{rows: rows}, nil
}

func (r *xlsReader) Next() bool {
	if r.next >= len(r.rows) {
		return false
	}
	r.row = r.rows[r.next]
	r.next++
	return true
}

func (r *xlsReader) Row() Row { return r.row }

func (r *xlsReader) Err() error { return nil }

func (r *xlsReader) Close() error { return nil }

// xlsCells turns parsed BIFF cells into typed cells. Numbers whose XF uses a
// date format become dates.
type xlsCells struct {
	wb       *xls.Workbook
	date1904 bool
	dates    map[int]bool // by XF index
}

func (c *xlsCells) cell(cd structure.CellData) Cell {
	switch cd.GetType() {
	case "*record.Number", "*record.Rk":
		return c.number(cd.GetFloat64(), cd.GetXFIndex())
	case "*record.LabelSSt", "*record.LabelBIFF8", "*record.LabelBIFF5":
		return c.text(cd.GetString())
	case "*record.BoolErr":
		return StringCell(cd.GetString())
	default:
		// Blank, MulBlank parts and gaps
		return NullCell()
	}
}

func (c *xlsCells) formula(f formulaCell) Cell {
	switch f.kind {
	case CellNumber:
		return c.number(f.number, f.xf)
	case CellString:
		return c.text(f.text)
	default:
		return NullCell()
	}
}

func (c *xlsCells) number(v float64, xf int) Cell {
	if c.isDate(xf) {
		if t, err := excelize.ExcelDateToTime(v, c.date1904); err == nil {
			return DateCell(t)
		}
	}
	cell := NumberCell(v)
	cell.Date1904 = c.date1904
	return cell
}

// text classifies label values the way the xlsx reader does, numeric text
// included.
func (c *xlsCells) text(s string) Cell {
	cell := classify(decodeText(s))
	if cell.Kind == CellNumber {
		cell.Date1904 = c.date1904
	}
	return cell
}

func (c *xlsCells) isDate(xf int) (date bool) {
	if d, ok := c.dates[xf]; ok {
		return d
	}
	defer func() {
		// workbooks with fewer than 16 XF records make the lookup panic
		if recover() != nil {
			date = false
		}
		c.dates[xf] = date
	}()

	rec := c.wb.GetXFbyIndex(xf)
	idx := rec.GetFormatIndex()
	if idx < 164 {
		return isBuiltinDateFormat(idx)
	}
	format := c.wb.GetFormatByIndex(idx)
	if format.GetIndex() != idx {
		return false
	}
	return isDateFormat(format.String())
}

func isBuiltinDateFormat(idx int) bool {
	switch {
	case idx >= 14 && idx <= 22,
		idx >= 27 && idx <= 36,
		idx >= 45 && idx <= 47,
		idx >= 50 && idx <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format renders a date or a
// time. Quoted text, escapes and bracketed colors or locales do not count.
func isDateFormat(code string) bool {
	for i := 0; i < len(code); i++ {
		switch ch := code[i]; ch {
		case '"':
			j := strings.IndexByte(code[i+1:], '"')
			if j < 0 {
				return false
			}
			i += j + 1
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i+1:], ']')
			if j < 0 {
				return false
			}
			// [h], [mm], [ss] are elapsed times
			inner := strings.ToLower(code[i+1 : i+1+j])
			if inner != "" && strings.Trim(inner, "hms") == "" {
				return true
			}
			i += j + 1
		default:
			switch ch | 0x20 {
			case 'y', 'm', 'd', 'h', 's':
				return true
			}
		}
	}
	return false
}

// decodeText fixes compressed BIFF8 strings, which hold Latin-1 bytes rather
// than UTF-8.
func decodeText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	if d, err := charmap.ISO8859_1.NewDecoder().String(s); err == nil {
		return d
	}
	return s
}

// biffScan holds what the cell parser leaves out: the date system of the
// workbook and the cached results of formula cells on the first sheet.
type biffScan struct {
	date1904 bool
	formulas []formulaCell
	rows     int
}

type formulaCell struct {
	row, col int
	xf       int
	kind     CellKind
	number   float64
	text     string
}

func scanBIFF(content []byte) (*biffScan, error) {
	stream, err := workbookStream(content)
	if err != nil {
		return nil, err
	}

	scan := &biffScan{}
	sheetPos := -1
	biff8 := false
	for pos := 0; ; {
		id, data, next, err := biffRecord(stream, pos)
		if err != nil {
			return nil, err
		}
		if pos == 0 {
			if id != biffBOF || len(data) < 2 {
				return nil, errors.New("workbook stream does not start with a BOF record")
			}
			biff8 = binary.LittleEndian.Uint16(data) == biff8Version
		}
		switch id {
		case biffDateMode:
			if len(data) >= 2 {
				scan.date1904 = binary.LittleEndian.Uint16(data) == 1
			}
		case biffBoundSheet:
			if sheetPos < 0 && len(data) >= 4 {
				sheetPos = int(binary.LittleEndian.Uint32(data))
			}
		}
		pos = next
		if id == biffEOF {
			break
		}
	}
	if sheetPos < 0 {
		return nil, errors.New("workbook has no sheets")
	}

	if err := scan.sheet(stream, sheetPos, biff8); err != nil {
		return nil, err
	}
	return scan, nil
}

// sheet collects FORMULA results of the sheet substream starting at pos.
// String results live in the STRING record right after their FORMULA.
func (s *biffScan) sheet(stream []byte, pos int, biff8 bool) error {
	pending := -1
	for {
		id, data, next, err := biffRecord(stream, pos)
		if err != nil {
			return err
		}
		pos = next

		switch id {
		case biffFormula:
			if len(data) < 14 {
				return fmt.Errorf("FORMULA record of %d bytes", len(data))
			}
			f := formulaCell{
				row: int(binary.LittleEndian.Uint16(data[0:])),
				col: int(binary.LittleEndian.Uint16(data[2:])),
				xf:  int(binary.LittleEndian.Uint16(data[4:])),
			}
			pending = -1
			res := data[6:14]
			if res[6] == 0xFF && res[7] == 0xFF {
				switch res[0] {
				case 0:
					f.kind = CellString
					pending = len(s.formulas)
				case 1:
					f.kind = CellString
					f.text = "FALSE"
					if res[2] == 1 {
						f.text = "TRUE"
					}
				case 2:
					f.kind = CellString
					f.text = biffErrorText(res[2])
				default:
					f.kind = CellNull
				}
			} else {
				f.kind = CellNumber
				f.number = math.Float64frombits(binary.LittleEndian.Uint64(res))
			}
			s.formulas = append(s.formulas, f)
			if f.row+1 > s.rows {
				s.rows = f.row + 1
			}
		case biffString:
			if pending >= 0 {
				s.formulas[pending].text = biffText(data, biff8)
				pending = -1
			}
		case biffEOF:
			return nil
		}
	}
}

func biffRecord(stream []byte, pos int) (id uint16, data []byte, next int, err error) {
	if pos < 0 || pos+4 > len(stream) {
		return 0, nil, 0, fmt.Errorf("record at %d: %w", pos, io.ErrUnexpectedEOF)
	}
	id = binary.LittleEndian.Uint16(stream[pos:])
	end := pos + 4 + int(binary.LittleEndian.Uint16(stream[pos+2:]))
	if end > len(stream) {
		return 0, nil, 0, fmt.Errorf("record %#04x at %d: %w", id, pos, io.ErrUnexpectedEOF)
	}
	return id, stream[pos+4 : end], end, nil
}

// biffText decodes the string of a STRING record. Text continued in a
// CONTINUE record is cut at the record end.
func biffText(data []byte, biff8 bool) string {
	if len(data) < 2 {
		return ""
	}
	n := int(binary.LittleEndian.Uint16(data))
	if !biff8 {
		b := data[2:]
		if n < len(b) {
			b = b[:n]
		}
		return decodeText(string(b))
	}
	if len(data) < 3 {
		return ""
	}
	wide := data[2]&1 == 1
	b := data[3:]
	if !wide {
		if n < len(b) {
			b = b[:n]
		}
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
		if err != nil {
			return string(b)
		}
		return string(s)
	}
	if 2*n < len(b) {
		b = b[:2*n]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units))
}

func biffErrorText(code byte) string {
	switch code {
	case 0x00:
		return "#NULL!"
	case 0x07:
		return "#DIV/0!"
	case 0x0F:
		return "#VALUE!"
	case 0x17:
		return "#REF!"
	case 0x1D:
		return "#NAME?"
	case 0x24:
		return "#NUM!"
	case 0x2A:
		return "#N/A"
	}
	return fmt.Sprintf("#ERR%d", code)
}

// workbookStream extracts the BIFF stream from the compound file. Excel 5
// files name it Book.
func workbookStream(content []byte) ([]byte, error) {
	doc, err := mscfb.New(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	var book *mscfb.File
	for _, f := range doc.File {
		switch f.Name {
		case "Book":
			book = f
		case "Workbook":
			if book == nil {
				book = f
			}
		}
	}
	if book == nil {
		return nil, errors.New("no Workbook stream")
	}
	return io.ReadAll(book)
}
