package random

import "testing"

func TestBytesLength(t *testing.T) {
	for _, n := range []int{0, 1, 8, 256, 257, 1000} {
		b, err := Bytes(n)
		if err != nil {
			t.Fatalf("Bytes(%d): %v", n, err)
		}
		if len(b) != n {
			t.Fatalf("Bytes(%d) returned %d bytes", n, len(b))
		}
	}
}

func TestBytesNegative(t *testing.T) {
	if _, err := Bytes(-1); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestBytesVary(t *testing.T) {
	a, err := Bytes(32)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Bytes(32)
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("two independent draws were identical; suspicious")
	}
}
