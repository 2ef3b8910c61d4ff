package session

import (
	"bytes"
	"testing"
)

func TestEntryEncodingCarriesExpiry(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
	}{
		{name: "no expiry", entry: Entry{Value: []byte(`"v"`)}},
		{name: "with expiry", entry: Entry{Value: []byte(`{"n":1}`), ExpireAt: 1700000000}},
		{name: "empty value", entry: Entry{Value: []byte{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := EncodeEntry(tt.entry)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeEntry(blob)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ExpireAt != tt.entry.ExpireAt || !bytes.Equal(got.Value, tt.entry.Value) {
				t.Fatalf("got %+v want %+v", got, tt.entry)
			}
		})
	}
}

func TestDecodeEntryRejectsMalformed(t *testing.T) {
	good, err := EncodeEntry(Entry{Value: []byte(`"abc"`), ExpireAt: 42})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	inputs := map[string][]byte{
		"empty":            {},
		"bad version":      {9, 0, 0, 0, 0, 0},
		"truncated":        good[:len(good)-1],
		"trailing garbage": append(append([]byte{}, good...), 0xFF),
		"plain json":       []byte(`{"value":"x"}`),
	}
	for name, in := range inputs {
		if _, err := DecodeEntry(in); err == nil {
			t.Fatalf("%s: expected decode error", name)
		}
	}
}

func TestEntryExpiredAtIsStrict(t *testing.T) {
	e := Entry{ExpireAt: 100}
	if e.ExpiredAt(100) {
		t.Fatalf("entry must not be expired at its own deadline")
	}
	if !e.ExpiredAt(101) {
		t.Fatalf("entry must be expired after its deadline")
	}
	if (Entry{}).ExpiredAt(1 << 40) {
		t.Fatalf("entry without expiry must never expire")
	}
}

func TestDecodeRecordRejectsUnsupportedVersion(t *testing.T) {
	if _, err := DecodeRecord([]byte{99}); err == nil {
		t.Fatalf("expected version error")
	}
}
