package invite

import (
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	code, err := Encode("com_1700000000_abc123", "Friday Night Gaming")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p, err := Decode(code)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.CommunityID != "com_1700000000_abc123" || p.CommunityName != "Friday Night Gaming" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestEncodeRejectsEmptyCommunityID(t *testing.T) {
	if _, err := Encode("", "whatever"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not-base58!!!",
		"4vDiJz", // valid base58 but not JSON
	}
	for _, c := range cases {
		if _, err := Decode(c); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("Decode(%q) = %v, want ErrInvalidCode", c, err)
		}
	}
}

func TestDecodeRejectsMissingCommunityID(t *testing.T) {
	code, err := Encode("x", "")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(code); err != nil {
		t.Fatalf("decode of complete payload: %v", err)
	}
	// A well-formed payload that lacks community_id.
	incomplete := base58.Encode([]byte(`{"community_name":"x"}`))
	if _, err := Decode(incomplete); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}
