package storage

import (
	"context"
	"errors"
	"testing"

	"campusmart/internal/domain/listings"

	"github.com/pashagolub/pgxmock/v4"
)

func TestRunInTxCommits(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE listings SET review_summary").
		WithArgs(int64(3), "Sturdy tent.").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback().WillReturnError(errors.New("tx is closed"))

	err = runInTx(context.Background(), mock, func(tx *Tx) error {
		return tx.Listings.UpdateReviewSummary(context.Background(), 3, "Sturdy tent.")
	})
	if err != nil {
		t.Fatalf("runInTx() error = %v", err)
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE listings SET is_active = FALSE").
		WithArgs(int64(8)).
		WillReturnRows(mock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err = runInTx(context.Background(), mock, func(tx *Tx) error {
		_, err := tx.Listings.MarkUnavailable(context.Background(), 8)
		return err
	})
	if !errors.Is(err, listings.ErrUnavailable) {
		t.Errorf("runInTx() error = %v, want ErrUnavailable", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWithTxWithoutRunner(t *testing.T) {
	c := &Container{}
	if err := c.WithTx(context.Background(), func(*Tx) error { return nil }); err == nil {
		t.Error("WithTx() error = nil, want error")
	}
}
