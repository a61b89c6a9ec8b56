package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndValid(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	first := NewAt(base)
	second := NewAt(base.Add(time.Millisecond))
	if !(first < second) {
		t.Fatalf("expected %s < %s", first, second)
	}
	if !Valid(first) || !Valid(New()) {
		t.Fatalf("expected generated ids to be valid")
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-an-id", "01HZZZZZZZZZZZZZZZZZZZZZZZZZ"} {
		if Valid(raw) {
			t.Fatalf("expected %q to be invalid", raw)
		}
	}
}
