package workbook

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	maxSheetNameLen   = 31
	fallbackSheetName = "Hoja"
)

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// SheetNamer issues legal, distinct sheet names for one export run.
type SheetNamer struct {
	used map[string]struct{}
}

func NewSheetNamer() *SheetNamer {
	return &SheetNamer{used: map[string]struct{}{}}
}

// Reserve marks a name as taken without altering it.
func (n *SheetNamer) Reserve(name string) {
	n.used[strings.ToLower(name)] = struct{}{}
}

// Sanitize returns a name of at most 31 characters without \ / * ? : [ ]
// that differs from every name issued before. Collisions get a _2, _3, ... suffix.
func (n *SheetNamer) Sanitize(raw string) string {
	base := safeSheetName(raw)
	name := base
	for i := 2; n.taken(name); i++ {
		suffix := fmt.Sprintf("_%d", i)
		name = trimSheetName(truncateRunes(base, maxSheetNameLen-utf8.RuneCountInString(suffix))) + suffix
	}
	n.Reserve(name)
	return name
}

func (n *SheetNamer) taken(name string) bool {
	_, ok := n.used[strings.ToLower(name)]
	return ok
}

// ShouldAddWorksheet reports false when the workbook already has a sheet named exactly name.
func ShouldAddWorksheet(f *excelize.File, name string) bool {
	for _, s := range f.GetSheetList() {
		if s == name {
			return false
		}
	}
	return true
}

func safeSheetName(name string) string {
	s := trimSheetName(sheetNameReplacer.Replace(name))
	s = trimSheetName(truncateRunes(s, maxSheetNameLen))
	if s == "" {
		return fallbackSheetName
	}
	return s
}

// trimSheetName strips spaces and apostrophes from both ends until none is
// left; a sheet name may not start or end with an apostrophe.
func trimSheetName(s string) string {
	for {
		t := strings.Trim(strings.TrimSpace(s), "'")
		if t == s {
			return s
		}
		s = t
	}
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
