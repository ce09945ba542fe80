package checkpoint

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreSaveAndLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{db: sqlx.NewDb(db, "postgres")}

	mock.ExpectExec("INSERT INTO eventflux_checkpoints").
		WithArgs("app1", "1000", []byte("payload")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, store.Save("app1", "1000", []byte("payload")))

	rows := sqlmock.NewRows([]string{"payload"}).AddRow([]byte("payload"))
	mock.ExpectQuery("SELECT payload FROM eventflux_checkpoints").
		WithArgs("app1", "1000").
		WillReturnRows(rows)

	got, ok, err := store.Load("app1", "1000")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("payload"), got)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreGetLastRevision(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &PostgresStore{db: sqlx.NewDb(db, "postgres")}

	rows := sqlmock.NewRows([]string{"revision"}).AddRow("2000")
	mock.ExpectQuery("SELECT revision FROM eventflux_checkpoints").
		WithArgs("app1").
		WillReturnRows(rows)

	rev, ok, err := store.GetLastRevision("app1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2000", rev)
}
