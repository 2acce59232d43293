package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
)

func TestRebind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"SELECT * FROM users WHERE id = ?", "SELECT * FROM users WHERE id = $1"},
		{
			"UPDATE found_items SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			"UPDATE found_items SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4",
		},
		{"DELETE FROM lost_items WHERE id = ? AND status IN (?, ?)", "DELETE FROM lost_items WHERE id = $1 AND status IN ($2, $3)"},
	}
	for _, tt := range tests {
		if got := rebind(tt.in); got != tt.want {
			t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	if !errors.Is(translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound) {
		t.Error("expected no rows to become ErrNotFound")
	}
	if !errors.Is(translate(&pgconn.PgError{Code: "23505"}), repository.ErrUniqueViolation) {
		t.Error("expected 23505 to become ErrUniqueViolation")
	}
	other := &pgconn.PgError{Code: "23503"}
	if translate(other) != other {
		t.Error("expected other errors to pass through")
	}
}
