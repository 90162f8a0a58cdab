package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

func TestDirectoryRepositoryLookup(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "service_area", "broadcast_service_area", "broadcast_categories", "public_key"}).
		AddRow("grp-1", "Nachbarschaftshilfe Nord", "Berlin", "Berlin-Pankow", "{FOOD,SHELTER}", []byte("pubkey-32-bytes"))

	mock.ExpectQuery(regexp.QuoteMeta("verification_status = 'VERIFIED'")).
		WithArgs("Berlin", sqlmock.AnyArg()).
		WillReturnRows(rows)

	entries, err := repo.Lookup(context.Background(), models.DirectoryFilter{
		Region:     "Berlin",
		Categories: []string{"FOOD"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "grp-1", entries[0].ID)
	assert.Equal(t, "Berlin-Pankow", entries[0].EffectiveServiceArea())
}

func TestDirectoryRepositoryLookupNoFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("verification_status = 'VERIFIED'")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "service_area", "broadcast_service_area", "broadcast_categories", "public_key"}))

	entries, err := repo.Lookup(context.Background(), models.DirectoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDirectoryRepositoryFindEligible(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDirectoryRepository(db)

	rows := sqlmock.NewRows([]string{"id"}).AddRow("grp-1").AddRow("grp-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM groups")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	eligible, err := repo.FindEligible(context.Background(), []string{"grp-1", "grp-2", "grp-unverified"})
	require.NoError(t, err)
	assert.Len(t, eligible, 2)
	_, ok := eligible["grp-unverified"]
	assert.False(t, ok)
}
