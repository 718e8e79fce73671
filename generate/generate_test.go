package generate

import (
	"errors"
	"strings"
	"testing"
)

func TestPasswordLengthAndCharset(t *testing.T) {
	pw, err := Password(42, DefaultCharset)
	if err != nil {
		t.Fatal(err)
	}
	if len(pw) != 42 {
		t.Fatalf("len = %d, want 42", len(pw))
	}
	for _, c := range pw {
		if !strings.ContainsRune(DefaultCharset, c) {
			t.Fatalf("character %q not in charset", c)
		}
	}
}

func TestPasswordVaries(t *testing.T) {
	pw, err := Password(10, DefaultCharset)
	if err != nil {
		t.Fatal(err)
	}
	distinct := map[rune]bool{}
	for _, c := range pw {
		distinct[c] = true
	}
	if len(distinct) < 2 {
		t.Fatalf("generated password has too little variety: %q", pw)
	}
}

func TestPasswordRejectsNonPositiveLength(t *testing.T) {
	if _, err := Password(0, DefaultCharset); !errors.Is(err, ErrLength) {
		t.Fatalf("want ErrLength, got %v", err)
	}
	if _, err := Password(-5, DefaultCharset); !errors.Is(err, ErrLength) {
		t.Fatalf("want ErrLength, got %v", err)
	}
}

func TestPasswordSmallCharset(t *testing.T) {
	pw, err := Password(100, "ab")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range pw {
		if c != 'a' && c != 'b' {
			t.Fatalf("unexpected character %q for charset 'ab'", c)
		}
	}
}
