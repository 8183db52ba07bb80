package textutil

import "testing"

func TestFileToken(t *testing.T) {
	tests := map[string]string{
		"07101":          "07101",
		"My Collection":  "My_Collection",
		"a / b":          "a_b",
		"..":             "collection",
		"../etc":         "etc",
		"  ":             "collection",
		"set-2.v1":       "set-2.v1",
		"Ölgemälde 1890": "Ölgemälde_1890",
	}
	for in, want := range tests {
		if got := FileToken(in); got != want {
			t.Fatalf("FileToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	tests := map[string]string{
		"portrait of a lady": "Portrait Of A Lady",
		"HARBOUR  AT DUSK":   "Harbour At Dusk",
		"van Gogh's Chair":   "van Gogh's Chair",
		"":                   "",
	}
	for in, want := range tests {
		if got := DisplayTitle(in); got != want {
			t.Fatalf("DisplayTitle(%q) = %q, want %q", in, got, want)
		}
	}
}
