package weak

import "testing"

func TestIsShort(t *testing.T) {
	if !Is([]byte("abc123")) {
		t.Error("short value not flagged weak")
	}
}

func TestIsSingleClass(t *testing.T) {
	if !Is([]byte("aaaaaaaaaaaa")) {
		t.Error("single-class value not flagged weak")
	}
	if !Is([]byte("12345678901")) {
		t.Error("all-digit value not flagged weak")
	}
}

func TestDictionaryCaseInsensitive(t *testing.T) {
	if !Is([]byte("P@ssw0rd")) {
		t.Error("dictionary word (mixed case) not flagged weak")
	}
}

func TestPwnedDataset(t *testing.T) {
	if !Is([]byte("password123")) {
		t.Error("known-pwned value not flagged weak")
	}
}

func TestStrongValue(t *testing.T) {
	strong := "WEy2zHDJjLsNog8tE5hwvrIR0adAGrR4m5wh6y99ssyo1zzUESw9OWPp8yEL"
	if Is([]byte(strong)) {
		t.Errorf("strong value flagged weak: %q", strong)
	}
}
