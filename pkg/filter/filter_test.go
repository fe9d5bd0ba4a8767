package filter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestContains(t *testing.T) {
	f := New([]string{"darn", "heck"})

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"clean text", "hello everyone", false},
		{"exact match", "darn", true},
		{"match mid sentence", "well darn it", true},
		{"case insensitive", "DARN that", true},
		{"mixed case list entry", "oh Heck no", true},
		{"substring does not match", "darning socks", false},
		{"empty text", "", false},
		{"whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Contains(tt.text); got != tt.want {
				t.Errorf("Contains(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestEmptyFilterNeverMatches(t *testing.T) {
	var f *Filter
	if f.Contains("anything darn at all") {
		t.Error("nil filter should never match")
	}
	f = New(nil)
	if f.Contains("anything darn at all") {
		t.Error("empty filter should never match")
	}
}

func TestLoad(t *testing.T) {
	src := "darn\n  HECK  \n\nfoo\n"
	f, err := Load(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	if !f.Contains("heck") {
		t.Error("expected trimmed, lowercased entry to match")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badwords.txt")
	if err := os.WriteFile(path, []byte("darn\nheck\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !f.Contains("you heck you") {
		t.Error("expected loaded word to match")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("LoadFile: expected error for missing file")
	}
}
