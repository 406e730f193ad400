package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbxark/civicdesk/registry"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, DialectPostgres), mock
}

func TestRebind(t *testing.T) {
	pg := New(nil, DialectPostgres)
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := New(nil, DialectSQLite)
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestPostgresCreateApplication(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO applications (user_id, certificate_type, status, application_data, created_at) VALUES ($1, $2, $3, $4, $5) RETURNING application_id`)).
		WithArgs("anu", "Birth Certificate", "Pending", `{"full_name":"Anu"}`, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"application_id"}).AddRow(7))

	id, err := db.CreateApplication(context.Background(), "anu", registry.BirthCertificate, map[string]any{"full_name": "Anu"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetApplication(t *testing.T) {
	db, mock := newMockDB(t)
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+applicationColumns+` FROM applications WHERE application_id = $1`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"application_id", "user_id", "certificate_type", "status", "application_data", "pdf_path", "remarks", "created_at"}).
			AddRow(3, "anu", "Land Certificate", "Approved", `{"area_sqft":1200}`, "", "", created))

	app, err := db.GetApplication(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, registry.LandCertificate, app.Kind)
	assert.Equal(t, StatusApproved, app.Status)
	assert.Equal(t, 1200.0, app.Data["area_sqft"])
	assert.Equal(t, created, app.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRemarksNotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE applications SET remarks = $1 WHERE application_id = $2`)).
		WithArgs("ok", int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.UpdateRemarks(context.Background(), 5, "ok")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateUserDuplicate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM users WHERE user_id = $1 OR mobile = $2 OR email = $3`)).
		WithArgs("anu", "9847012345", "anu@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := db.CreateUser(context.Background(), &User{UserID: "anu", Mobile: "9847012345", Email: "anu@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
