package codec

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{nil, {}, {0}, []byte("hello world"), make([]byte, 64)}
	for _, c := range cases {
		got, err := Decode(Encode(c))
		if err != nil {
			t.Fatalf("Decode(Encode(%v)): %v", c, err)
		}
		if len(got) != len(c) {
			t.Fatalf("round trip length mismatch: got %d want %d", len(got), len(c))
		}
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode("not base64!!"); err == nil {
		t.Fatal("expected error decoding malformed input")
	}
}
