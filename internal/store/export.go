package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/exambank/internal/model"
)

// ExportResults builds an export of stored results. A zero userID exports the
// results of all users.
func (s *Store) ExportResults(ctx context.Context, userID int64) (model.ResultsExport, error) {
	results, err := s.ListResults(ctx, userID)
	if err != nil {
		return model.ResultsExport{}, fmt.Errorf("list results: %w", err)
	}
	return model.ResultsExport{
		GeneratedAt: time.Now().UTC(),
		UserID:      userID,
		Count:       len(results),
		Results:     results,
	}, nil
}
