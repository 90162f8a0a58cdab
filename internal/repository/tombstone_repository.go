package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

// TombstoneRepository reads the append-only deletion ledger. Writes happen
// inside invite deletion transactions; this repository only aggregates.
type TombstoneRepository struct {
	db *sqlx.DB
}

// NewTombstoneRepository constructs the repository.
func NewTombstoneRepository(db *sqlx.DB) *TombstoneRepository {
	return &TombstoneRepository{db: db}
}

// Aggregate buckets tombstones by calendar day, deletion type, and category.
// Each category on a multi-category tombstone counts once in its own bucket.
func (r *TombstoneRepository) Aggregate(ctx context.Context, filter models.TombstoneFilter) ([]models.TombstoneAggregate, error) {
	where := []string{"TRUE"}
	args := []interface{}{}

	if filter.From != nil {
		where = append(where, fmt.Sprintf("deleted_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("deleted_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	query := fmt.Sprintf(`SELECT to_char(date_trunc('day', deleted_at), 'YYYY-MM-DD') AS period,
       deletion_type,
       category,
       COUNT(*) AS count
FROM tombstones, unnest(categories) AS category
WHERE %s
GROUP BY period, deletion_type, category
ORDER BY period DESC, deletion_type ASC, category ASC`, strings.Join(where, " AND "))

	var aggregates []models.TombstoneAggregate
	if err := r.db.SelectContext(ctx, &aggregates, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate tombstones: %w", err)
	}
	return aggregates, nil
}

// CountByType returns the total tombstone count per deletion type, used by
// the metrics collector at startup to restore counters.
func (r *TombstoneRepository) CountByType(ctx context.Context) (map[models.DeletionType]int, error) {
	const query = `SELECT deletion_type, COUNT(*) AS count FROM tombstones GROUP BY deletion_type`
	rows := []struct {
		DeletionType models.DeletionType `db:"deletion_type"`
		Count        int                 `db:"count"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count tombstones: %w", err)
	}
	counts := make(map[models.DeletionType]int, len(rows))
	for _, row := range rows {
		counts[row.DeletionType] = row.Count
	}
	return counts, nil
}
