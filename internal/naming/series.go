package naming

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Series allocates sequence numbers per prefix. Allocation happens inside the
// caller's transaction so a rolled-back document releases no visible gap
// beyond the sequence row itself.
type Series struct{}

func NewSeries() *Series {
	return &Series{}
}

// NextInTx increments and returns the next number for the prefix.
func (s *Series) NextInTx(ctx context.Context, tx pgx.Tx, prefix Prefix) (string, error) {
	var seq int64
	err := tx.QueryRow(ctx, `INSERT INTO naming_sequences (prefix, current)
VALUES ($1, 1)
ON CONFLICT (prefix) DO UPDATE SET current = naming_sequences.current + 1
RETURNING current`, prefix.Text).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("naming: next %s: %w", prefix.Text, err)
	}
	return prefix.Format(seq), nil
}
