package pushtokens

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
)

func TestGetTokensByUserIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT user_id, expo_push_token FROM user_push_tokens").
		WithArgs([]string{"u1", "u2"}).
		WillReturnRows(mock.NewRows([]string{"user_id", "expo_push_token"}).
			AddRow("u1", "ExponentPushToken[a]").
			AddRow("u1", "ExponentPushToken[b]").
			AddRow("u2", "ExponentPushToken[c]"))

	got, err := NewRepository(mock).GetTokensByUserIDs(context.Background(), []string{"u1", "u2"})
	if err != nil {
		t.Fatalf("GetTokensByUserIDs() error = %v", err)
	}
	want := map[string][]string{
		"u1": {"ExponentPushToken[a]", "ExponentPushToken[b]"},
		"u2": {"ExponentPushToken[c]"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetTokensByUserIDs() = %v, want %v", got, want)
	}
}

func TestGetTokensByUserIDsEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	got, err := NewRepository(mock).GetTokensByUserIDs(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("GetTokensByUserIDs(nil) = %v, %v", got, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPruneStaleTokens(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec("DELETE FROM user_push_tokens WHERE last_updated").
		WithArgs("86400 seconds").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	n, err := NewRepository(mock).PruneStaleTokens(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneStaleTokens() error = %v", err)
	}
	if n != 4 {
		t.Errorf("PruneStaleTokens() = %d, want 4", n)
	}
}
