package workbook

import (
	"errors"
	"fmt"
	"strings"
)

type Datatype string

const (
	Entero     Datatype = "Entero"
	Decimal    Datatype = "Decimal"
	Porcentaje Datatype = "Porcentaje"
	TextoCorto Datatype = "Texto Corto"
	TextoLargo Datatype = "Texto Largo"
	TrueFalse  Datatype = "True/False"
	Fecha      Datatype = "Fecha"
	FechaRango Datatype = "Fecha Inicial / Fecha Final"
	Link       Datatype = "Link"
)

const (
	shortTextMax = 60
	longTextMax  = 500
)

var knownDatatypes = map[Datatype]bool{
	Entero: true, Decimal: true, Porcentaje: true, TextoCorto: true, TextoLargo: true,
	TrueFalse: true, Fecha: true, FechaRango: true, Link: true,
}

func (d Datatype) Known() bool { return knownDatatypes[d] }

// IsDate reports whether values of this datatype carry calendar dates.
func (d Datatype) IsDate() bool { return d == Fecha || d == FechaRango }

const (
	ValidatorTypeText   = "Texto"
	ValidatorTypeNumber = "Número"
)

type Field struct {
	Name         string   `json:"name" yaml:"name"`
	Datatype     Datatype `json:"datatype" yaml:"datatype"`
	Required     bool     `json:"required" yaml:"required"`
	ValidateWith string   `json:"validate_with,omitempty" yaml:"validate_with,omitempty"`
	Comment      string   `json:"comment,omitempty" yaml:"comment,omitempty"`
}

var ErrInvalidFieldName = errors.New("invalid field name")

// Validate mirrors the backend's field name rule so the error can be shown before a round trip.
func (f Field) Validate() error {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidFieldName)
	}
	if strings.Contains(name, "-") {
		return fmt.Errorf("%w: %q must not contain '-'", ErrInvalidFieldName, name)
	}
	return nil
}

// ForcedDatatype returns the datatype a field must take when it is validated
// against v: numeric reference columns force Entero, textual ones Texto Largo.
func (f Field) ForcedDatatype(v Validator) Datatype {
	col, ok := v.ValidatorColumn()
	if !ok {
		return f.Datatype
	}
	if col.Type == ValidatorTypeNumber {
		return Entero
	}
	return TextoLargo
}

type ValidatorColumn struct {
	Name        string `json:"name" yaml:"name"`
	IsValidator bool   `json:"is_validator" yaml:"is_validator"`
	Type        string `json:"type" yaml:"type"`
	Values      []any  `json:"values" yaml:"values"`
}

type Validator struct {
	Name    string            `json:"name" yaml:"name"`
	Columns []ValidatorColumn `json:"columns" yaml:"columns"`
}

var ErrMalformedValidator = errors.New("malformed validator")

// Check enforces one accepted-value column and row-aligned value lists.
func (v Validator) Check() error {
	flagged := 0
	for _, c := range v.Columns {
		if c.IsValidator {
			flagged++
		}
		if len(c.Values) != len(v.Columns[0].Values) {
			return fmt.Errorf("%w: %q column %q has %d values, want %d",
				ErrMalformedValidator, v.Name, c.Name, len(c.Values), len(v.Columns[0].Values))
		}
	}
	if flagged != 1 {
		return fmt.Errorf("%w: %q has %d validator columns", ErrMalformedValidator, v.Name, flagged)
	}
	return nil
}

func (v Validator) ValidatorColumn() (ValidatorColumn, bool) {
	for _, c := range v.Columns {
		if c.IsValidator {
			return c, true
		}
	}
	return ValidatorColumn{}, false
}

// RowCount is the length of the longest column.
func (v Validator) RowCount() int {
	n := 0
	for _, c := range v.Columns {
		if len(c.Values) > n {
			n = len(c.Values)
		}
	}
	return n
}

// Rows returns the value tuples across columns; short columns yield nil.
func (v Validator) Rows() [][]any {
	n := v.RowCount()
	rows := make([][]any, n)
	for i := 0; i < n; i++ {
		row := make([]any, len(v.Columns))
		for j, c := range v.Columns {
			if i < len(c.Values) {
				row[j] = c.Values[i]
			}
		}
		rows[i] = row
	}
	return rows
}

type Template struct {
	Name            string   `json:"name" yaml:"name"`
	FileName        string   `json:"file_name" yaml:"file_name"`
	FileDescription string   `json:"file_description" yaml:"file_description"`
	Fields          []Field  `json:"fields" yaml:"fields"`
	Validators      []string `json:"validators,omitempty" yaml:"validators,omitempty"`
}

// FieldTypes builds the name -> datatype map the ingestor needs.
func (t Template) FieldTypes() map[string]Datatype {
	out := make(map[string]Datatype, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Name] = f.Datatype
	}
	return out
}

// WithValidatorTypes returns a copy of t in which every field validated
// against one of validators takes the datatype that validator forces.
func (t Template) WithValidatorTypes(validators []Validator) Template {
	byName := make(map[string]Validator, len(validators))
	for _, v := range validators {
		byName[v.Name] = v
	}
	out := t
	out.Fields = make([]Field, len(t.Fields))
	for i, f := range t.Fields {
		if v, ok := byName[f.ValidateWith]; ok && f.ValidateWith != "" {
			f.Datatype = f.ForcedDatatype(v)
		}
		out.Fields[i] = f
	}
	return out
}

// RowData holds previously submitted values, one row-aligned slice per field.
type RowData map[string][]any

// RowCount is the longest values slice; malformed data yields zero.
func (d RowData) RowCount() int {
	n := 0
	for _, vals := range d {
		if len(vals) > n {
			n = len(vals)
		}
	}
	return n
}

// Value returns the i-th value of a field or nil when absent or short.
func (d RowData) Value(field string, i int) any {
	vals, ok := d[field]
	if !ok || i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}
