package workbook

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTemplate() Template {
	return Template{
		Name:     "Matrícula 2024",
		FileName: "matricula_2024",
		Fields: []Field{
			{Name: "Edad", Datatype: Entero, Comment: "line1\r\nline2"},
			{Name: "Activo", Datatype: TrueFalse},
			{Name: "Inicio", Datatype: Fecha},
			{Name: "Libre", Datatype: Datatype("Moneda")},
		},
	}
}

func build(t *testing.T, in BuildInput) *excelize.File {
	t.Helper()
	f, err := NewBuilder(DefaultDateLocale()).Build(in)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuildHeaderRow(t *testing.T) {
	f := build(t, BuildInput{Template: sampleTemplate()})

	require.Equal(t, "Matrícula 2024", f.GetSheetName(0))
	rows, err := f.GetRows("Matrícula 2024")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, []string{"Edad", "Activo", "Inicio", "Libre"}, rows[0])

	idx, err := f.GetCellStyle("Matrícula 2024", "B1")
	require.NoError(t, err)
	style, err := f.GetStyle(idx)
	require.NoError(t, err)
	require.True(t, style.Font.Bold)
	require.Len(t, style.Border, 4)

	width, err := f.GetColWidth("Matrícula 2024", "D")
	require.NoError(t, err)
	require.Equal(t, float64(DefaultColumnWidth), width)
}

func TestBuildHeaderNote(t *testing.T) {
	f := build(t, BuildInput{Template: sampleTemplate()})

	comments, err := f.GetComments("Matrícula 2024")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "A1", comments[0].Cell)
	require.Equal(t, "MIRÓ", comments[0].Author)

	text := comments[0].Text
	for _, run := range comments[0].Paragraph {
		text += run.Text
	}
	require.Equal(t, "line1\nline2", text)
}

func TestBuildGuideSheet(t *testing.T) {
	f := build(t, BuildInput{Template: sampleTemplate()})

	rows, err := f.GetRows(GuideSheetName)
	require.NoError(t, err)
	require.Equal(t, []string{"Campo", "Comentario del campo"}, rows[0])
	require.Equal(t, []string{"Edad", "line1\nline2"}, rows[1])
	// empty comments still get a row
	require.Equal(t, []string{"Activo"}, rows[2])
	require.Len(t, rows, 5)
}

func TestBuildGuideSheetWithoutFields(t *testing.T) {
	f := build(t, BuildInput{Template: Template{Name: "Vacía"}})

	rows, err := f.GetRows(GuideSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestBuildValidationRules(t *testing.T) {
	f := build(t, BuildInput{Template: sampleTemplate()})

	dvs, err := f.GetDataValidations("Matrícula 2024")
	require.NoError(t, err)
	// the unknown datatype gets no rule
	require.Len(t, dvs, 3)

	bySqref := map[string]*excelize.DataValidation{}
	for _, dv := range dvs {
		bySqref[dv.Sqref] = dv
	}
	require.Equal(t, "whole", bySqref["A2:A1001"].Type)
	require.Equal(t, "0", bySqref["A2:A1001"].Formula1)
	require.Equal(t, "9999999999", bySqref["A2:A1001"].Formula2)
	require.Equal(t, "list", bySqref["B2:B1001"].Type)
	require.True(t, bySqref["B2:B1001"].AllowBlank)
	require.Equal(t, "date", bySqref["C2:C1001"].Type)
	require.NotContains(t, bySqref, "D2:D1001")
}

func TestRuleForEveryKnownDatatype(t *testing.T) {
	cases := map[Datatype]string{
		Entero:     "whole",
		Decimal:    "decimal",
		Porcentaje: "custom",
		TextoCorto: "textLength",
		TextoLargo: "textLength",
		TrueFalse:  "list",
		Fecha:      "date",
		FechaRango: "date",
		Link:       "textLength",
	}
	for dt, want := range cases {
		dv, err := RuleFor(dt, "A2")
		require.NoError(t, err, dt)
		require.NotNil(t, dv, dt)
		require.Equal(t, want, dv.Type, dt)
	}

	dv, err := RuleFor("Otro", "A2")
	require.NoError(t, err)
	require.Nil(t, dv)

	short, _ := RuleFor(TextoCorto, "A2")
	require.Equal(t, "60", short.Formula2)
	link, _ := RuleFor(Link, "A2")
	require.Equal(t, "greaterThan", link.Operator)
	pct, _ := RuleFor(Porcentaje, "C2")
	require.Equal(t, "AND(ISNUMBER(C2),SIGN(C2)=1,SIGN(100-C2)=1)", pct.Formula1)
}

func TestBuildPercentageRuleIsStrict(t *testing.T) {
	tpl := Template{Name: "Tasas", Fields: []Field{
		{Name: "Nombre", Datatype: Datatype("Moneda")},
		{Name: "Tasa", Datatype: Porcentaje},
	}}
	f := build(t, BuildInput{Template: tpl})

	dvs, err := f.GetDataValidations("Tasas")
	require.NoError(t, err)
	require.Len(t, dvs, 1)
	require.Equal(t, "B2:B1001", dvs[0].Sqref)
	require.Equal(t, "custom", dvs[0].Type)
	require.Contains(t, dvs[0].Formula1, "SIGN(100-B2)=1")
}

func TestBuildCustomRowCount(t *testing.T) {
	b := NewBuilder(DefaultDateLocale())
	b.Rows = 10
	f, err := b.Build(BuildInput{Template: sampleTemplate()})
	require.NoError(t, err)
	defer f.Close()

	dvs, err := f.GetDataValidations("Matrícula 2024")
	require.NoError(t, err)
	require.Equal(t, "A2:A11", dvs[0].Sqref)
}

func TestBuildValidatorSheetAlignment(t *testing.T) {
	v := Validator{
		Name: "Sedes",
		Columns: []ValidatorColumn{
			{Name: "Código", IsValidator: true, Type: ValidatorTypeText, Values: []any{"MED", "BOG", "MAN"}},
			{Name: "Nombre", Type: ValidatorTypeText, Values: []any{"Medellín", "Bogotá", "Manizales"}},
		},
	}
	f := build(t, BuildInput{Template: sampleTemplate(), Validators: []Validator{v}})

	rows, err := f.GetRows("Sedes")
	require.NoError(t, err)
	require.Len(t, rows, v.RowCount()+1)
	require.Equal(t, []string{"Código", "Nombre"}, rows[0])
	for r := 1; r < len(rows); r++ {
		require.Len(t, rows[r], len(v.Columns))
		for c := range v.Columns {
			require.Equal(t, v.Columns[c].Values[r-1], rows[r][c])
		}
	}

	idx, err := f.GetCellStyle("Sedes", "B3")
	require.NoError(t, err)
	style, err := f.GetStyle(idx)
	require.NoError(t, err)
	require.Len(t, style.Border, 4)
}

func TestBuildValidatorNamesStayDistinct(t *testing.T) {
	a := Validator{Name: "Sedes/2024", Columns: []ValidatorColumn{{Name: "x", IsValidator: true, Values: []any{"1"}}}}
	b := Validator{Name: "Sedes:2024", Columns: []ValidatorColumn{{Name: "y", IsValidator: true, Values: []any{"2"}}}}

	f := build(t, BuildInput{Template: sampleTemplate(), Validators: []Validator{a, b, a}})

	require.Equal(t, []string{"Matrícula 2024", GuideSheetName, "Sedes_2024", "Sedes_2024_2"}, f.GetSheetList())
	rows, err := f.GetRows("Sedes_2024_2")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"y"}, {"2"}}, rows)
}

func TestBuildWithApostropheHeavyNames(t *testing.T) {
	tpl := sampleTemplate()
	tpl.Name = strings.Repeat("b", 30) + "' z"
	col := []ValidatorColumn{{Name: "v", IsValidator: true, Values: []any{"1"}}}
	validators := []Validator{
		{Name: strings.Repeat("a", 30) + "'bc", Columns: col},
		{Name: "'''", Columns: col},
		{Name: "  'Sedes'", Columns: col},
		{Name: strings.Repeat("c", 28) + "'xy", Columns: col},
		{Name: strings.Repeat("c", 28) + "'xy", Columns: col},
	}

	f, err := NewBuilder(DefaultDateLocale()).Build(BuildInput{Template: tpl, Validators: validators})
	require.NoError(t, err)
	defer f.Close()

	for _, name := range f.GetSheetList() {
		require.False(t, strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'"), name)
		require.LessOrEqual(t, utf8.RuneCountInString(name), maxSheetNameLen, name)
	}
	require.Equal(t, strings.Repeat("b", 30), f.GetSheetName(0))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
}

func TestBuildValidatorNamedLikeGuide(t *testing.T) {
	v := Validator{Name: GuideSheetName, Columns: []ValidatorColumn{{Name: "x", IsValidator: true, Values: []any{"1"}}}}
	f := build(t, BuildInput{Template: sampleTemplate(), Validators: []Validator{v}})
	require.Contains(t, f.GetSheetList(), GuideSheetName+"_2")
}

func TestBuildPrefill(t *testing.T) {
	tpl := Template{
		Name: "Datos",
		Fields: []Field{
			{Name: "Edad", Datatype: Entero},
			{Name: "Inicio", Datatype: Fecha},
			{Name: "Periodo", Datatype: FechaRango},
			{Name: "Activo", Datatype: TrueFalse},
		},
	}
	prev := RowData{
		"Edad":    {30, 31},
		"Inicio":  {"2024-01-30T00:00:00Z", "no es fecha"},
		"Periodo": {[]any{"2024-01-01", "2024-06-30T00:00:00Z"}},
		"Activo":  {true},
		"Extra":   {"ignored", "ignored", "ignored"},
	}
	f := build(t, BuildInput{Template: tpl, PreviousData: prev})

	rows, err := f.GetRows("Datos")
	require.NoError(t, err)
	// the third row only has a value for a field the template lacks
	require.Len(t, rows, 3)
	require.Equal(t, []string{"30", "2024-01-30", `["2024-01-01","2024-06-30"]`, "Si"}, rows[1])
	require.Equal(t, []string{"31", "no es fecha"}, rows[2])
}

func TestBuildMalformedPreviousData(t *testing.T) {
	tpl := sampleTemplate()
	f := build(t, BuildInput{Template: tpl, PreviousData: RowData{"Edad": nil}})

	rows, err := f.GetRows(tpl.Name)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestWriteToProducesReadableWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewBuilder(DefaultDateLocale()).WriteTo(&buf, BuildInput{Template: sampleTemplate()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, "Matrícula 2024", f.GetSheetName(0))
}

func TestFileName(t *testing.T) {
	require.Equal(t, "matricula_2024.xlsx", FileName(sampleTemplate()))
	require.Equal(t, "Sin archivo.xlsx", FileName(Template{Name: "Sin archivo"}))
	require.Equal(t, "plantilla.xlsx", FileName(Template{}))
}

func TestNormalizeNote(t *testing.T) {
	require.Equal(t, "a\nb\nc\nd", NormalizeNote("a\r\nb\rc\\r\\nd"))
}
