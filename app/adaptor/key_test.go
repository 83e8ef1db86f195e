package adaptor

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	got := DeriveKey([]byte("a"))
	if got != "ra_86f7e437faa5a7fce15d" {
		t.Errorf("Expected ra_86f7e437faa5a7fce15d, got %s", got)
	}
}

func TestNewKeyFormat(t *testing.T) {
	issuer := NewKeyIssuer(nil)

	key, err := issuer.NewKey()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, KeyPrefix) {
		t.Errorf("Expected prefix %s, got %s", KeyPrefix, key)
	}
	if len(key) != len(KeyPrefix)+keyDigestLen {
		t.Errorf("Expected key length %d, got %d", len(KeyPrefix)+keyDigestLen, len(key))
	}

	other, _ := issuer.NewKey()
	if other == key {
		t.Error("Expected distinct keys from random source")
	}
}

func TestNewKeyIsDeterministicForSource(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, keySeedLen)

	a, _ := NewKeyIssuer(bytes.NewReader(seed)).NewKey()
	b, _ := NewKeyIssuer(bytes.NewReader(seed)).NewKey()
	if a != b || a != DeriveKey(seed) {
		t.Errorf("Expected identical keys for identical seeds, got %s and %s", a, b)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestNewKeyReaderError(t *testing.T) {
	if _, err := NewKeyIssuer(failingReader{}).NewKey(); err == nil {
		t.Error("Expected error from failing random source")
	}
}

func TestRenewKeyReplacesKey(t *testing.T) {
	a := &RemoteAdaptor{Name: "sms", APIKey: "ra_old"}

	seed := bytes.Repeat([]byte{3}, keySeedLen)

	if err := NewKeyIssuer(bytes.NewReader(seed)).RenewKey(a); err != nil {
		t.Fatal(err)
	}
	if a.APIKey != DeriveKey(seed) {
		t.Errorf("Expected derived key, got %s", a.APIKey)
	}
}

func TestNewKeyShortRead(t *testing.T) {
	a := &RemoteAdaptor{Name: "sms", APIKey: "ra_old"}
	short := NewKeyIssuer(strings.NewReader("a"))

	if _, err := short.NewKey(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Expected short random read to fail, got %v", err)
	}
	if err := short.RenewKey(a); err == nil {
		t.Error("Expected renew to fail on an exhausted random source")
	}
	if a.APIKey != "ra_old" {
		t.Errorf("Expected key to stay unchanged, got %s", a.APIKey)
	}
}
