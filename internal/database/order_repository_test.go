package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkOrderPaid(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	orderID := uuid.New()

	t.Run("Pending Order Transitions", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(orderID, "pi_abc").
			WillReturnResult(sqlmock.NewResult(0, 1))

		paid, err := repo.MarkPaid(orderID, "pi_abc")
		require.NoError(t, err)
		assert.True(t, paid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Paid Is A No-Op", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(orderID, "pi_abc").
			WillReturnResult(sqlmock.NewResult(0, 0))

		paid, err := repo.MarkPaid(orderID, "pi_abc")
		require.NoError(t, err)
		assert.False(t, paid)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkOrderScheduled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	orderID := uuid.New()
	bookingID := uuid.New()
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	tz := "Europe/Zurich"
	loc := "Verbier"

	t.Run("Waiver Signed Order Transitions", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(orderID, bookingID, start, tz, loc).
			WillReturnResult(sqlmock.NewResult(0, 1))

		scheduled, err := repo.MarkScheduled(orderID, &bookingID, &start, &tz, &loc)
		require.NoError(t, err)
		assert.True(t, scheduled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Refreshed Callback Is A No-Op", func(t *testing.T) {
		mock.ExpectExec(`UPDATE orders`).
			WithArgs(orderID, bookingID, start, tz, loc).
			WillReturnResult(sqlmock.NewResult(0, 0))

		scheduled, err := repo.MarkScheduled(orderID, &bookingID, &start, &tz, &loc)
		require.NoError(t, err)
		assert.False(t, scheduled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
