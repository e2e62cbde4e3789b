package sdk_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcossouzacontrole-cpu/finquest/core/access"
	"github.com/marcossouzacontrole-cpu/finquest/core/csql"
	"github.com/marcossouzacontrole-cpu/finquest/core/sdk"
)

var testIssuer = access.NewTokenIssuer("unit-test-secret")

// newTestClient builds a client from a faked authenticated request
// against a sqlmock backed database.
func newTestClient(t *testing.T, email string) (*sdk.Client, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r, _ := http.NewRequest(http.MethodPost, "/", nil)
	if email != "" {
		token, err := testIssuer.Issue(access.Identity{Email: email}, time.Now().Add(time.Hour))
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return sdk.NewClientFromRequest(csql.NewWithDB(db, "finquest"), r), mock
}

func TestCreateInjectsOwner(t *testing.T) {
	client, mock := newTestClient(t, "alice@example.com")
	mock.ExpectQuery(`INSERT INTO finquest."Goal" ("created_by", "name") VALUES ($1,$2) RETURNING *`).
		WithArgs("alice@example.com", "Espada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by", "name"}).
			AddRow("42", "alice@example.com", "Espada"))

	record, err := client.Create(context.Background(), "Goal", sdk.Record{"name": "Espada"})
	require.NoError(t, err)
	assert.Equal(t, "42", record["id"])
	assert.Equal(t, "alice@example.com", record["created_by"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	client, mock := newTestClient(t, "alice@example.com")
	mock.ExpectQuery(`SELECT * FROM finquest."Goal" WHERE id = $1 AND "created_by" = $2`).
		WithArgs("42", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := client.Get(context.Background(), "Goal", "42")
	assert.ErrorIs(t, err, sdk.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateUnownedRow(t *testing.T) {
	client, mock := newTestClient(t, "alice@example.com")
	mock.ExpectQuery(`UPDATE finquest."Goal" SET "name" = $1 WHERE id = $2 AND "created_by" = $3 RETURNING *`).
		WithArgs("Lança", "42", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := client.Update(context.Background(), "Goal", "42", sdk.Record{"name": "Lança"})
	assert.ErrorIs(t, err, sdk.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteSilentNoOp(t *testing.T) {
	client, mock := newTestClient(t, "alice@example.com")
	mock.ExpectExec(`DELETE FROM finquest."Goal" WHERE id = $1 AND "created_by" = $2`).
		WithArgs("42", "alice@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := client.Delete(context.Background(), "Goal", "42")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRoleListUnscoped(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	client := sdk.NewServiceRoleClient(csql.NewWithDB(db, "finquest"))
	mock.ExpectQuery(`SELECT * FROM finquest."Goal"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by"}).
			AddRow("1", "alice@example.com").
			AddRow("2", "bob@example.com"))

	records, err := client.List(context.Background(), "Goal")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "alice@example.com", records[0]["created_by"])
	assert.Equal(t, "bob@example.com", records[1]["created_by"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnonymousScope(t *testing.T) {
	client, mock := newTestClient(t, "")

	_, err := client.Auth.Me()
	assert.ErrorIs(t, err, access.ErrNoIdentity)

	mock.ExpectQuery(`INSERT INTO finquest."Goal" ("created_by", "name") VALUES ($1,$2) RETURNING *`).
		WithArgs(sdk.AnonymousEmail, "Espada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_by"}).
			AddRow("1", sdk.AnonymousEmail))

	record, err := client.Create(context.Background(), "Goal", sdk.Record{"name": "Espada"})
	require.NoError(t, err)
	assert.Equal(t, sdk.AnonymousEmail, record["created_by"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplexValuesEncoded(t *testing.T) {
	client, mock := newTestClient(t, "alice@example.com")
	mock.ExpectQuery(`INSERT INTO finquest."BudgetCategory" ("created_by", "expenses", "name") VALUES ($1,$2,$3) RETURNING *`).
		WithArgs("alice@example.com", []byte(`[{"value":10}]`), "Mercado").
		WillReturnRows(sqlmock.NewRows([]string{"id", "expenses"}).
			AddRow("1", []byte(`[{"value":10}]`)))

	record, err := client.Create(context.Background(), "BudgetCategory", sdk.Record{
		"name":     "Mercado",
		"expenses": []map[string]interface{}{{"value": 10}},
	})
	require.NoError(t, err)
	expenses, ok := record["expenses"].([]interface{})
	require.True(t, ok)
	assert.Len(t, expenses, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
