package httpapi

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	cursor := encodeCursor(now, "txn-42")

	decodedTime, decodedID, ok := decodeCursor(cursor)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if decodedID != "txn-42" {
		t.Errorf("id = %q, want txn-42", decodedID)
	}
	if !decodedTime.Equal(now) {
		t.Errorf("time = %v, want %v", decodedTime, now)
	}
}

func TestDecodeCursorRejectsEmpty(t *testing.T) {
	if _, _, ok := decodeCursor(""); ok {
		t.Error("expected empty cursor to fail decode")
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	if _, _, ok := decodeCursor("not-valid-base64!!"); ok {
		t.Error("expected invalid base64 to fail decode")
	}
}

func TestDecodeCursorRejectsMissingSeparator(t *testing.T) {
	malformed := base64.RawURLEncoding.EncodeToString([]byte("no-separator-here"))
	if _, _, ok := decodeCursor(malformed); ok {
		t.Error("expected cursor without separator to fail decode")
	}
}
