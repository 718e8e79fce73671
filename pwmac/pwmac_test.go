package pwmac

import (
	"testing"

	"github.com/smattr/passwand/kdf"
)

func TestComputeAndVerify(t *testing.T) {
	data := []byte("space\x00key\x00value\x00saltiv..")
	salt, tag, err := Compute([]byte("main"), data, nil, kdf.MinWorkFactor)
	if err != nil {
		t.Fatal(err)
	}
	if len(salt) != kdf.SaltSize {
		t.Fatalf("salt len = %d, want %d", len(salt), kdf.SaltSize)
	}
	if len(tag) != Size {
		t.Fatalf("tag len = %d, want %d", len(tag), Size)
	}
	ok, err := Verify([]byte("main"), data, salt, kdf.MinWorkFactor, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("verify failed for a tag it computed itself")
	}
}

func TestVerifyRejectsTamperedData(t *testing.T) {
	data := []byte("abc")
	salt, tag, err := Compute([]byte("main"), data, nil, kdf.MinWorkFactor)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := Verify([]byte("main"), []byte("abd"), salt, kdf.MinWorkFactor, tag)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("verify accepted a tag over different data")
	}
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	data := []byte("abc")
	salt, tag, err := Compute([]byte("main1"), data, nil, kdf.MinWorkFactor)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := Verify([]byte("main2"), data, salt, kdf.MinWorkFactor, tag)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("verify accepted a tag under the wrong password")
	}
}
