package workbook

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultEntryRows   = 1000
	DefaultColumnWidth = 25

	GuideSheetName = "Guía"
	headerFill     = "#002060"
	guideFill      = "#FFFF00"
	noteColor      = "FF0000"

	maxWhole   = 9999999999
	minDateSer = 1       // 1900-01-01
	maxDateSer = 2958465 // 9999-12-31
)

// Builder renders a template as a workbook ready for data entry.
type Builder struct {
	Locale      DateLocale
	Rows        int
	ColumnWidth float64
	Author      string
}

type BuildInput struct {
	Template     Template
	Validators   []Validator
	PreviousData RowData
}

func NewBuilder(locale DateLocale) *Builder {
	return &Builder{Locale: locale, Rows: DefaultEntryRows, ColumnWidth: DefaultColumnWidth, Author: "MIRÓ"}
}

// FileName is the download name of a template workbook.
func FileName(t Template) string {
	name := strings.TrimSpace(t.FileName)
	if name == "" {
		name = strings.TrimSpace(t.Name)
	}
	if name == "" {
		name = "plantilla"
	}
	return name + ".xlsx"
}

type builderStyles struct {
	header      int
	guideHeader int
	wrapped     int
	bordered    int
	date        int
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

// HeaderStyle registers the data header style (bold white on dark blue,
// bordered, centered) in f. Other exports reuse it to look the same.
func HeaderStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
}

// BorderedStyle registers a plain thin-bordered cell style in f.
func BorderedStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{Border: thinBorder()})
}

func (b *Builder) newStyles(f *excelize.File) (builderStyles, error) {
	var (
		s   builderStyles
		err error
	)
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}

	if s.header, err = HeaderStyle(f); err != nil {
		return s, err
	}
	if s.guideHeader, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{guideFill}},
		Border:    thinBorder(),
		Alignment: center,
	}); err != nil {
		return s, err
	}
	if s.wrapped, err = f.NewStyle(&excelize.Style{
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	}); err != nil {
		return s, err
	}
	if s.bordered, err = BorderedStyle(f); err != nil {
		return s, err
	}
	numFmt := b.Locale.NumFmt
	if numFmt == "" {
		numFmt = DefaultDateLocale().NumFmt
	}
	s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	return s, err
}

// Build assembles the data sheet, the guide sheet and one sheet per validator.
// Malformed previous data never fails the build; it only yields fewer rows.
func (b *Builder) Build(in BuildInput) (*excelize.File, error) {
	f := excelize.NewFile()
	styles, err := b.newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create styles: %w", err)
	}

	namer := NewSheetNamer()
	dataSheet := namer.Sanitize(in.Template.Name)
	if err := f.SetSheetName(f.GetSheetName(0), dataSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename data sheet: %w", err)
	}

	steps := []func() error{
		func() error { return b.writeHeader(f, dataSheet, in.Template.Fields, styles) },
		func() error { return b.writeGuide(f, namer.Sanitize(GuideSheetName), in.Template.Fields, styles) },
		func() error { return b.writePreviousData(f, dataSheet, in.Template.Fields, in.PreviousData) },
		func() error { return b.addValidations(f, dataSheet, in.Template.Fields, styles) },
		func() error { return b.writeValidatorSheets(f, namer, in.Validators, styles) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteTo builds the workbook and serializes it to w.
func (b *Builder) WriteTo(w io.Writer, in BuildInput) error {
	f, err := b.Build(in)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// NormalizeNote turns CRLF, lone CR and their escaped spellings into "\n".
func NormalizeNote(s string) string {
	return strings.NewReplacer(
		"\r\n", "\n",
		"\r", "\n",
		`\r\n`, "\n",
		`\r`, "\n",
		`\n`, "\n",
	).Replace(s)
}

// writeHeader writes the field names in row 1. A field comment becomes a cell
// note; excelize stores notes hidden, so they show on hover and the Guide
// sheet repeats their text.
func (b *Builder) writeHeader(f *excelize.File, sheet string, fields []Field, styles builderStyles) error {
	if len(fields) == 0 {
		return nil
	}
	for i, field := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, field.Name); err != nil {
			return fmt.Errorf("header %q: %w", field.Name, err)
		}
		if field.Comment == "" {
			continue
		}
		if err := f.AddComment(sheet, excelize.Comment{
			Cell:   cell,
			Author: b.Author,
			Paragraph: []excelize.RichTextRun{
				{Text: NormalizeNote(field.Comment), Font: &excelize.Font{Color: noteColor}},
			},
		}); err != nil {
			return fmt.Errorf("note %q: %w", field.Name, err)
		}
	}

	last, _ := excelize.CoordinatesToCellName(len(fields), 1)
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(fields))
	width := b.ColumnWidth
	if width <= 0 {
		width = DefaultColumnWidth
	}
	return f.SetColWidth(sheet, "A", lastCol, width)
}

func (b *Builder) writeGuide(f *excelize.File, sheet string, fields []Field, styles builderStyles) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("guide sheet: %w", err)
	}
	if err := f.SetSheetRow(sheet, "A1", &[]any{"Campo", "Comentario del campo"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", styles.guideHeader); err != nil {
		return err
	}
	for i, field := range fields {
		row := i + 2
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &[]any{field.Name, NormalizeNote(field.Comment)}); err != nil {
			return err
		}
	}
	if len(fields) > 0 {
		last := fmt.Sprintf("B%d", len(fields)+1)
		if err := f.SetCellStyle(sheet, "A2", last, styles.wrapped); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "A", 30); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 80)
}

func (b *Builder) writePreviousData(f *excelize.File, sheet string, fields []Field, data RowData) error {
	if len(fields) == 0 {
		return nil
	}
	n := data.RowCount()
	for i := 0; i < n; i++ {
		row := make([]any, len(fields))
		for j, field := range fields {
			row[j] = b.prefillValue(field.Datatype, data.Value(field.Name, i))
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("prefill row %d: %w", i+1, err)
		}
	}
	return nil
}

func (b *Builder) prefillValue(dt Datatype, v any) any {
	if v == nil {
		return nil
	}
	switch dt {
	case Fecha:
		return b.Locale.FormatISO(v)
	case FechaRango:
		pair, ok := asPair(v)
		if !ok {
			return b.Locale.FormatISO(v)
		}
		out := []any{b.Locale.FormatISO(pair[0]), b.Locale.FormatISO(pair[1])}
		raw, err := json.Marshal(out)
		if err != nil {
			return v
		}
		return string(raw)
	case TrueFalse:
		if t, ok := v.(bool); ok {
			if t {
				return "Si"
			}
			return "No"
		}
	}
	switch v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return v
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

func (b *Builder) entryRows() int {
	if b.Rows <= 0 {
		return DefaultEntryRows
	}
	return b.Rows
}

// RuleFor returns the data-entry rule for a datatype, or nil when the datatype
// has none (unknown datatypes stay unrestricted). cell is the top-left cell of
// the range the rule will cover; formula rules are written relative to it.
func RuleFor(dt Datatype, cell string) (*excelize.DataValidation, error) {
	dv := excelize.NewDataValidation(true)
	var err error
	switch dt {
	case Entero:
		err = dv.SetRange(0, maxWhole, excelize.DataValidationTypeWhole, excelize.DataValidationOperatorBetween)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Valor inválido", "El valor debe ser un número entero.")
	case Decimal:
		err = dv.SetRange(0.0, float64(maxWhole), excelize.DataValidationTypeDecimal, excelize.DataValidationOperatorBetween)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Valor inválido", "El valor debe ser un número decimal.")
	case Porcentaje:
		// strictly between 0 and 100
		dv.Type = "custom"
		dv.Formula1 = fmt.Sprintf("AND(ISNUMBER(%[1]s),SIGN(%[1]s)=1,SIGN(100-%[1]s)=1)", cell)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Valor inválido", "El valor debe ser un porcentaje mayor que 0 y menor que 100.")
	case TextoCorto:
		err = dv.SetRange(0, shortTextMax, excelize.DataValidationTypeTextLength, excelize.DataValidationOperatorBetween)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Texto demasiado largo", fmt.Sprintf("El texto debe tener máximo %d caracteres.", shortTextMax))
	case TextoLargo:
		err = dv.SetRange(0, longTextMax, excelize.DataValidationTypeTextLength, excelize.DataValidationOperatorBetween)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Texto demasiado largo", fmt.Sprintf("El texto debe tener máximo %d caracteres.", longTextMax))
	case TrueFalse:
		err = dv.SetDropList([]string{"Si", "No"})
		dv.SetError(excelize.DataValidationErrorStyleStop, "Valor inválido", "Seleccione Si o No.")
	case Fecha, FechaRango:
		err = dv.SetRange(minDateSer, maxDateSer, excelize.DataValidationTypeDate, excelize.DataValidationOperatorBetween)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Fecha inválida", "Ingrese una fecha con formato DD/MM/AAAA.")
	case Link:
		err = dv.SetRange(0, 0, excelize.DataValidationTypeTextLength, excelize.DataValidationOperatorGreaterThan)
		dv.SetError(excelize.DataValidationErrorStyleStop, "Valor inválido", "El enlace no puede estar vacío.")
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dv, nil
}

func (b *Builder) addValidations(f *excelize.File, sheet string, fields []Field, styles builderStyles) error {
	lastRow := b.entryRows() + 1
	for i, field := range fields {
		col, _ := excelize.ColumnNumberToName(i + 1)
		dv, err := RuleFor(field.Datatype, col+"2")
		if err != nil {
			return fmt.Errorf("rule for %q: %w", field.Name, err)
		}
		if dv == nil {
			continue
		}
		dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, lastRow)
		if field.ValidateWith != "" {
			dv.SetInput("Valores permitidos", fmt.Sprintf("Consulte la hoja %s.", field.ValidateWith))
		}
		if err := f.AddDataValidation(sheet, dv); err != nil {
			return fmt.Errorf("validation for %q: %w", field.Name, err)
		}
		if field.Datatype.IsDate() {
			if err := f.SetCellStyle(sheet, col+"2", fmt.Sprintf("%s%d", col, lastRow), styles.date); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) writeValidatorSheets(f *excelize.File, namer *SheetNamer, validators []Validator, styles builderStyles) error {
	issued := map[string]string{}
	for _, v := range validators {
		sheet, ok := issued[v.Name]
		if !ok {
			sheet = namer.Sanitize(v.Name)
			issued[v.Name] = sheet
		}
		if !ShouldAddWorksheet(f, sheet) {
			continue
		}
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("validator sheet %q: %w", v.Name, err)
		}
		if len(v.Columns) == 0 {
			continue
		}

		header := make([]any, len(v.Columns))
		for i, c := range v.Columns {
			header[i] = c.Name
		}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return err
		}
		lastHeader, _ := excelize.CoordinatesToCellName(len(v.Columns), 1)
		if err := f.SetCellStyle(sheet, "A1", lastHeader, styles.header); err != nil {
			return err
		}

		rows := v.Rows()
		for i, row := range rows {
			if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
				return fmt.Errorf("validator %q row %d: %w", v.Name, i+1, err)
			}
		}
		if len(rows) > 0 {
			last, _ := excelize.CoordinatesToCellName(len(v.Columns), len(rows)+1)
			if err := f.SetCellStyle(sheet, "A2", last, styles.bordered); err != nil {
				return err
			}
		}
		lastCol, _ := excelize.ColumnNumberToName(len(v.Columns))
		if err := f.SetColWidth(sheet, "A", lastCol, DefaultColumnWidth); err != nil {
			return err
		}
	}
	return nil
}
