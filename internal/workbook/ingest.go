package workbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
	ErrEmptyWorkbook      = errors.New("workbook has no header row")
)

// Record is one ingested row keyed by field name, in sheet column order.
type Record = *orderedmap.OrderedMap

// Ingestor parses uploaded workbooks back into typed records.
type Ingestor struct {
	Locale DateLocale
}

func NewIngestor(locale DateLocale) *Ingestor {
	return &Ingestor{Locale: locale}
}

// Ingest reads the first worksheet of r. types must come from the backend,
// never from the uploaded file. A bad cell is never an error.
func (in *Ingestor) Ingest(r io.Reader, types map[string]Datatype) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyWorkbook
	}

	headers := raw[0]
	rows := make([][]any, 0, len(raw)-1)
	for r, cells := range raw[1:] {
		row := make([]any, len(cells))
		for c, cell := range cells {
			if cell == "" {
				continue
			}
			row[c] = cell
			if c >= len(headers) {
				continue
			}
			switch types[strings.TrimSpace(headers[c])] {
			case TrueFalse:
				row[c] = boolCell(f, sheet, c+1, r+2, cell)
			case Fecha:
				row[c] = dateCell(f, sheet, c+1, r+2, cell)
			}
		}
		rows = append(rows, row)
	}
	return in.IngestRows(headers, rows, types), nil
}

// boolCell returns a Go bool for boolean-typed cells and the text otherwise.
func boolCell(f *excelize.File, sheet string, col, row int, text string) any {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return text
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil || typ != excelize.CellTypeBool {
		return text
	}
	return text == "1" || strings.EqualFold(text, "TRUE")
}

// dateCell returns the serial of numeric cells as float64 and the text
// otherwise, so a year typed as text is not read as a serial.
func dateCell(f *excelize.File, sheet string, col, row int, text string) any {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return text
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil || (typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset) {
		return text
	}
	serial, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return text
	}
	return serial
}

// IngestRows builds one record per non-blank row. A leading column with a
// blank header is a row-number column and is dropped. Headers that name no
// known field are ignored.
func (in *Ingestor) IngestRows(headers []string, rows [][]any, types map[string]Datatype) []Record {
	offset := 0
	if len(headers) > 0 && strings.TrimSpace(headers[0]) == "" {
		offset = 1
	}

	type column struct {
		index int
		name  string
		dt    Datatype
	}
	var cols []column
	for i := offset; i < len(headers); i++ {
		name := strings.TrimSpace(headers[i])
		dt, ok := types[name]
		if name == "" || !ok {
			continue
		}
		cols = append(cols, column{index: i, name: name, dt: dt})
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		if blankRow(row, offset) {
			continue
		}
		rec := orderedmap.New()
		for _, c := range cols {
			var v any
			if c.index < len(row) {
				v = row[c.index]
			}
			rec.Set(c.name, in.Locale.Coerce(c.dt, v))
		}
		records = append(records, rec)
	}
	return records
}

func blankRow(row []any, from int) bool {
	for i := from; i < len(row); i++ {
		switch v := row[i].(type) {
		case nil:
		case string:
			if strings.TrimSpace(v) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}
