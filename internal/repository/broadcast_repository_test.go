package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidrelay/aidrelay-api/internal/models"
)

func TestBroadcastRepositoryCreateWithInvites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBroadcastRepository(db)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	broadcast := &models.Broadcast{
		ID:           "bc-1",
		SubmissionID: "sub-1",
		Ciphertext:   []byte("sealed"),
		Nonce:        []byte("nonce"),
		Region:       "Berlin",
		Categories:   pq.StringArray{"FOOD"},
		CreatedAt:    now,
	}
	invites := []models.Invite{
		{GroupID: "grp-1", WrappedKey: []byte("wrapped-1"), Region: "Berlin", Categories: pq.StringArray{"FOOD"}, ExpiresAt: now.Add(336 * time.Hour)},
		{GroupID: "grp-2", WrappedKey: []byte("wrapped-2"), Region: "Berlin", Categories: pq.StringArray{"FOOD"}, ExpiresAt: now.Add(336 * time.Hour)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO broadcasts")).
		WithArgs("bc-1", "sub-1", []byte("sealed"), []byte("nonce"), "Berlin", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invites")).
		WithArgs(sqlmock.AnyArg(), "bc-1", "grp-1", []byte("wrapped-1"), "Berlin", sqlmock.AnyArg(), now, now.Add(336*time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invites")).
		WithArgs(sqlmock.AnyArg(), "bc-1", "grp-2", []byte("wrapped-2"), "Berlin", sqlmock.AnyArg(), now, now.Add(336*time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	id, created, err := repo.CreateWithInvites(context.Background(), broadcast, invites)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "bc-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastRepositoryCreateReplay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBroadcastRepository(db)

	now := time.Now().UTC()
	broadcast := &models.Broadcast{
		ID:           "bc-new",
		SubmissionID: "sub-1",
		Ciphertext:   []byte("sealed"),
		Nonce:        []byte("nonce"),
		Region:       "Berlin",
		Categories:   pq.StringArray{"FOOD"},
		CreatedAt:    now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO broadcasts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM broadcasts WHERE submission_id = $1")).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bc-original"))
	mock.ExpectCommit()

	id, created, err := repo.CreateWithInvites(context.Background(), broadcast,
		[]models.Invite{{GroupID: "grp-1", WrappedKey: []byte("wrapped")}})
	require.NoError(t, err)
	// The replay writes no invite rows and reports the original broadcast.
	assert.False(t, created)
	assert.Equal(t, "bc-original", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBroadcastRepositoryCreateRollsBackOnInviteFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBroadcastRepository(db)

	now := time.Now().UTC()
	broadcast := &models.Broadcast{
		ID:           "bc-1",
		SubmissionID: "sub-1",
		Ciphertext:   []byte("sealed"),
		Nonce:        []byte("nonce"),
		Region:       "Berlin",
		Categories:   pq.StringArray{"FOOD"},
		CreatedAt:    now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO broadcasts")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO invites")).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, _, err := repo.CreateWithInvites(context.Background(), broadcast,
		[]models.Invite{{GroupID: "grp-1", WrappedKey: []byte("wrapped")}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
