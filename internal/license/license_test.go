package license

import (
	"strings"
	"testing"
)

func TestGenerate_Length(t *testing.T) {
	s, err := Generate()
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != Length {
		t.Errorf("len = %d, want %d", len(s), Length)
	}
}

func TestGenerate_Charset(t *testing.T) {
	for range 100 {
		s, err := Generate()
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range s {
			if !strings.ContainsRune(charset, c) {
				t.Fatalf("unexpected character %q in %q", c, s)
			}
		}
	}
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		s, err := Generate()
		if err != nil {
			t.Fatal(err)
		}
		if seen[s] {
			t.Fatalf("duplicate license %q", s)
		}
		seen[s] = true
	}
}
