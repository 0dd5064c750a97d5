package nats

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
)

func TestIndexRequestedRoundTrip(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	body, err := EncodeIndexRequested("acme-drhp", at)
	if err != nil {
		t.Fatalf("EncodeIndexRequested() error = %v", err)
	}
	event, err := DecodeIndexRequested(body)
	if err != nil {
		t.Fatalf("DecodeIndexRequested() error = %v", err)
	}
	if event.DocumentID != "acme-drhp" || !event.RequestedAt.Equal(at) {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDecodeIndexRequestedAcceptsBareID(t *testing.T) {
	event, err := DecodeIndexRequested([]byte(" acme-drhp\n"))
	if err != nil {
		t.Fatalf("DecodeIndexRequested() error = %v", err)
	}
	if event.DocumentID != "acme-drhp" {
		t.Fatalf("unexpected id: %q", event.DocumentID)
	}
}

func TestDecodeIndexRequestedRejectsInvalid(t *testing.T) {
	for _, body := range []string{"", "{", `{"document_id":""}`} {
		if _, err := DecodeIndexRequested([]byte(body)); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("body %q: expected invalid input, got %v", body, err)
		}
	}
}

func TestEncodeIndexRequestedRejectsEmptyID(t *testing.T) {
	if _, err := EncodeIndexRequested("  ", time.Now()); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestWrapTemporaryForConnectionErrors(t *testing.T) {
	err := wrapTemporaryIfNeeded(nats.ErrConnectionClosed)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}

	plain := errors.New("bad subject")
	if got := wrapTemporaryIfNeeded(plain); domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("non-retryable error must stay as is, got %v", got)
	}
}
