package memory

import (
	"context"
	"testing"

	"flowfinance/internal/sheets"
)

func TestReplaceKeepsLatestCopy(t *testing.T) {
	s := New()
	rows := []sheets.Row{{Date: "2024-01-01", Amount: "1.00"}}
	if err := s.Replace(context.Background(), rows); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	rows[0].Amount = "mutated"

	got := s.Rows()
	if len(got) != 1 || got[0].Amount != "1.00" {
		t.Fatalf("unexpected rows %+v", got)
	}

	if err := s.Replace(context.Background(), nil); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if len(s.Rows()) != 0 || s.Writes() != 2 {
		t.Fatalf("expected empty mirror after 2 writes, got %d rows, %d writes", len(s.Rows()), s.Writes())
	}
}
