package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1 := gen.NewID()
	id2 := gen.NewID()
	if id1 == id2 {
		t.Fatalf("expected unique IDs, got %s and %s", id1, id2)
	}
	parsed, err := goUUID.Parse(id1)
	if err != nil {
		t.Fatalf("id1 not valid UUID: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
	if id2 < id1 {
		t.Fatalf("expected time-ordered ids, got %s after %s", id2, id1)
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	if !Valid("0b5e7f0c-6d3a-4b8e-9a57-0e0c3e3d7f11") {
		t.Fatal("expected v4 uuid to be valid")
	}
	for _, bad := range []string{"", "abc", "0b5e7f0c-6d3a-4b8e-9a57"} {
		if Valid(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
}
