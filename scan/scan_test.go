package scan

import (
	"context"
	"testing"

	"github.com/smattr/passwand/entry"
	"github.com/smattr/passwand/kdf"
)

func sealSV(t *testing.T, space, value string) *entry.Sealed {
	t.Helper()
	o, err := entry.NewOpen([]byte(space), []byte("key"), []byte(value))
	if err != nil {
		t.Fatal(err)
	}
	s, err := entry.Seal(o, []byte("main"), kdf.MinWorkFactor)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func openFor(target string, wf int) Opener {
	return func(ctx context.Context, i int, sealed *entry.Sealed) (*entry.Open, bool, error) {
		o, err := sealed.Open([]byte("main"), wf)
		if err != nil {
			return nil, false, err
		}
		if string(o.Space.Bytes()) == target {
			return o, true, nil
		}
		o.Release()
		return nil, false, nil
	}
}

func TestFindFirstInOrder(t *testing.T) {
	entries := []*entry.Sealed{
		sealSV(t, "a", "1"),
		sealSV(t, "b", "2"),
		sealSV(t, "b", "3"),
	}
	for _, jobs := range []int{1, 2, 4} {
		idx, o, failures := FindFirst(context.Background(), entries, jobs, openFor("b", kdf.MinWorkFactor))
		if len(failures) != 0 {
			t.Fatalf("jobs=%d: unexpected failures: %v", jobs, failures)
		}
		if idx != 1 {
			t.Fatalf("jobs=%d: idx = %d, want 1", jobs, idx)
		}
		if string(o.Value.Bytes()) != "2" {
			t.Fatalf("jobs=%d: value = %q, want 2", jobs, o.Value.Bytes())
		}
		o.Release()
	}
}

func TestFindFirstNoMatch(t *testing.T) {
	entries := []*entry.Sealed{sealSV(t, "a", "1"), sealSV(t, "b", "2")}
	idx, o, failures := FindFirst(context.Background(), entries, 2, openFor("z", kdf.MinWorkFactor))
	if idx != -1 || o != nil {
		t.Fatalf("expected no match, got idx=%d o=%v", idx, o)
	}
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
}

func TestFindFirstIsolatesFailures(t *testing.T) {
	good := sealSV(t, "b", "good")
	bad := sealSV(t, "z", "bad")
	bad.HMAC[0] ^= 0xFF // corrupt so it fails to open

	entries := []*entry.Sealed{bad, good}
	idx, o, failures := FindFirst(context.Background(), entries, 2, openFor("b", kdf.MinWorkFactor))
	if idx != 1 {
		t.Fatalf("idx = %d, want 1", idx)
	}
	if o == nil || string(o.Value.Bytes()) != "good" {
		t.Fatalf("unexpected open result: %v", o)
	}
	o.Release()
	if len(failures) != 1 {
		t.Fatalf("failures = %v, want exactly entry 0 to have failed", failures)
	}
	if _, ok := failures[0]; !ok {
		t.Fatalf("expected failure recorded at index 0: %v", failures)
	}
}

func TestCheckAllPreservesOrderAndIsolatesFailures(t *testing.T) {
	e1 := sealSV(t, "a", "1")
	e2 := sealSV(t, "b", "2")
	e2.HMAC[0] ^= 0xFF
	e3 := sealSV(t, "c", "3")

	entries := []*entry.Sealed{e1, e2, e3}
	results, failures := CheckAll(context.Background(), entries, 3, openFor("a", kdf.MinWorkFactor), func(o *entry.Open) string {
		return string(o.Space.Bytes())
	})
	if results[0] != "a" || results[2] != "c" {
		t.Fatalf("results = %v, want a.., .., c", results)
	}
	if _, ok := failures[1]; !ok {
		t.Fatalf("expected failure at index 1: %v", failures)
	}
}
