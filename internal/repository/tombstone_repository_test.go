package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

func TestTombstoneRepositoryAggregate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTombstoneRepository(db)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"period", "deletion_type", "category", "count"}).
		AddRow("2026-03-09", "MANUAL", "FOOD", 4).
		AddRow("2026-03-09", "AUTO_INACTIVITY", "FOOD", 2)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY period, deletion_type, category")).
		WithArgs(from).
		WillReturnRows(rows)

	aggregates, err := repo.Aggregate(context.Background(), models.TombstoneFilter{From: &from})
	require.NoError(t, err)
	require.Len(t, aggregates, 2)
	assert.Equal(t, models.DeletionManual, aggregates[0].DeletionType)
	assert.Equal(t, 4, aggregates[0].Count)
}
