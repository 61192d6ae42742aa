package auth

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"genbiapi/config"
	"genbiapi/models"
	"genbiapi/utils"
)

// newMockedService wires the auth service against a gorm handle backed by
// sqlmock, so repository SQL runs without a real database.
func newMockedService(t *testing.T) (AuthService, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	oldDB := config.DB
	config.DB = gdb
	t.Cleanup(func() { config.DB = oldDB })

	return NewAuthService(NewSessionStore(time.Minute)), mock
}

func userRows(username, password string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "username", "password_hash", "roles", "permissions", "db_user", "db_password"}).
		AddRow(1, username, utils.HashPassword(password), `["analyst"]`, `{"databases":["*"],"tables":["orders"],"columns":["*"]}`, "", "")
}

// TestAuthenticate_Success checks that valid credentials yield a principal
// with its stored grants and a resolvable session token.
func TestAuthenticate_Success(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(userRows("alice", "s3cret-pass"))

	principal, token, err := svc.Authenticate("alice", "s3cret-pass")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.Equal(t, "alice", principal.Username)
	assert.Equal(t, []string{"orders"}, principal.Permissions.Tables)
	assert.True(t, principal.HasRole("analyst"))
	assert.False(t, principal.IsAdmin())

	resolved, ok := svc.ResolveToken(token)
	require.True(t, ok)
	assert.Equal(t, principal, resolved)
}

// TestAuthenticate_LoadsDBCredentials checks that a stored target-database
// account reaches the principal, so connection-scoped execution can use it.
func TestAuthenticate_LoadsDBCredentials(t *testing.T) {
	svc, mock := newMockedService(t)
	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "roles", "permissions", "db_user", "db_password"}).
		AddRow(1, "alice", utils.HashPassword("s3cret-pass"), `["analyst"]`, `{"tables":["orders"]}`, "alice_db", "alice-db-pass")
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(rows)

	principal, _, err := svc.Authenticate("alice", "s3cret-pass")
	require.NoError(t, err)
	assert.True(t, principal.HasOwnDBCredentials())
	assert.Equal(t, "alice_db", principal.DBUser)
	assert.Equal(t, "alice-db-pass", principal.DBPassword)
}

// TestAuthenticate_WrongPassword checks that a password mismatch yields
// the same generic error as an unknown user.
func TestAuthenticate_WrongPassword(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(userRows("alice", "s3cret-pass"))

	_, _, err := svc.Authenticate("alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
}

// TestAuthenticate_UnknownUser checks that a missing account never leaks
// its absence through the error text.
func TestAuthenticate_UnknownUser(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = ?").
		WithArgs("mallory").
		WillReturnError(gorm.ErrRecordNotFound)

	_, _, err := svc.Authenticate("mallory", "whatever")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
}

// TestLogout checks that a closed session no longer resolves.
func TestLogout(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = ?").
		WithArgs("alice").
		WillReturnRows(userRows("alice", "s3cret-pass"))

	_, token, err := svc.Authenticate("alice", "s3cret-pass")
	require.NoError(t, err)

	svc.Logout(token)
	_, ok := svc.ResolveToken(token)
	assert.False(t, ok)
}

// TestCreateUser_InvalidGrantRejected checks grant validation before any
// database work happens.
func TestCreateUser_InvalidGrantRejected(t *testing.T) {
	svc, mock := newMockedService(t)

	_, err := svc.CreateUser("bob", "longenough", []string{"analyst"}, models.Permissions{
		Tables: []string{"orders; DROP TABLE users"},
	}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid permission grant")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCreateUser_Duplicate checks duplicate detection inside the
// transaction.
func TestCreateUser_Duplicate(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE username = ?").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.CreateUser("bob", "longenough", nil, models.Permissions{}, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestCreateUser_Success checks the committed insert path.
func TestCreateUser_Success(t *testing.T) {
	svc, mock := newMockedService(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE username = ?").
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	user, err := svc.CreateUser("bob", "longenough", []string{"analyst"}, models.Permissions{
		Databases: []string{models.Wildcard},
		Tables:    []string{"orders"},
		Columns:   []string{"orders.order_id"},
	}, "bob_db", "db-pass")
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Username)
	assert.Equal(t, "bob_db", user.DBUser)
	assert.Equal(t, utils.HashPassword("longenough"), user.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestSessionStore_Expiry checks lazy TTL expiry.
func TestSessionStore_Expiry(t *testing.T) {
	st := NewSessionStore(-time.Second) // already expired on open
	token, err := st.Open(&models.Principal{Username: "alice"})
	require.NoError(t, err)

	_, ok := st.Resolve(token)
	assert.False(t, ok)
}

// TestSessionStore_DistinctTokens checks token uniqueness across opens.
func TestSessionStore_DistinctTokens(t *testing.T) {
	st := NewSessionStore(time.Minute)
	p := &models.Principal{Username: "alice"}

	t1, err := st.Open(p)
	require.NoError(t, err)
	t2, err := st.Open(p)
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
	assert.Len(t, t1, 64)
}
