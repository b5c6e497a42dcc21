package util

import (
	"reflect"
	"testing"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{" a , b ,c", []string{"a", "b", "c"}},
		{"a,,b,", []string{"a", "b"}},
		{` "Facultad, Sede" ,x`, []string{`"Facultad`, `Sede"`, "x"}},
		{" , , ", []string{}},
	}
	for _, tc := range cases {
		if got := SplitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitList(%q) = %#v, want %#v", tc.in, got, tc.want)
		}
	}
}
