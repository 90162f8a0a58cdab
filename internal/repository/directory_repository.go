package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

// DirectoryRepository reads the public projection of verified groups. It is
// strictly read-only; group rows are owned by the external admin system.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository creates the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// Lookup returns verified, broadcast-opted-in groups matching the filter.
//
// Region matching policy (deterministic, documented here on purpose):
// case-insensitive substring containment in either direction between the
// query region and the group's broadcast service area (falling back to its
// profile service area). "Berlin" therefore matches "Berlin-Neukölln" and
// vice versa. Category matching is non-empty set intersection.
func (r *DirectoryRepository) Lookup(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, error) {
	where := []string{
		"verification_status = 'VERIFIED'",
		"public_key IS NOT NULL",
		"broadcast_categories IS NOT NULL",
	}
	args := []interface{}{}

	if filter.Region != "" {
		pos := len(args) + 1
		where = append(where, fmt.Sprintf(
			`(LOWER(COALESCE(NULLIF(broadcast_service_area, ''), service_area)) LIKE '%%' || LOWER($%d) || '%%'
OR LOWER($%d) LIKE '%%' || LOWER(COALESCE(NULLIF(broadcast_service_area, ''), service_area)) || '%%')`, pos, pos))
		args = append(args, filter.Region)
	}
	if len(filter.Categories) > 0 {
		where = append(where, fmt.Sprintf("broadcast_categories && $%d", len(args)+1))
		args = append(args, pq.Array(filter.Categories))
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	query := fmt.Sprintf(`SELECT id, name, service_area, broadcast_service_area, broadcast_categories, public_key
FROM groups WHERE %s
ORDER BY name ASC
LIMIT %d`, strings.Join(where, " AND "), limit)

	var entries []models.DirectoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return entries, nil
}

// FindEligible returns the subset of the given group IDs that are verified
// and hold a public key. The broadcast service uses it to refuse fan-out to
// unknown or unverified targets.
func (r *DirectoryRepository) FindEligible(ctx context.Context, groupIDs []string) (map[string]struct{}, error) {
	const query = `SELECT id FROM groups
WHERE id = ANY($1) AND verification_status = 'VERIFIED' AND public_key IS NOT NULL`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(groupIDs)); err != nil {
		return nil, fmt.Errorf("find eligible groups: %w", err)
	}
	eligible := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		eligible[id] = struct{}{}
	}
	return eligible, nil
}
