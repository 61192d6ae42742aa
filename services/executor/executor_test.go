package executor

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	sqle "github.com/dolthub/go-mysql-server"
	"github.com/dolthub/go-mysql-server/memory"
	"github.com/dolthub/go-mysql-server/server"
	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/vitess/go/mysql"
	"github.com/dolthub/go-mysql-server/sql/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genbiapi/models"
)

func freePort(t *testing.T) int {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	require.NoError(t, err)
	l, err := net.ListenTCP("tcp", addr)
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startTestServer runs a temporary in-memory MySQL server with a sales
// database holding a small orders table and returns its port.
func startTestServer(t *testing.T) int {
	port := freePort(t)

	salesDB := memory.NewDatabase("sales")
	provider := memory.NewDBProvider(salesDB)
	engine := sqle.NewDefault(provider)

	ordersSchema := gmssql.NewPrimaryKeySchema(gmssql.Schema{
		{Name: "order_id", Type: types.Int64, Source: "orders", Nullable: false, PrimaryKey: true},
		{Name: "customer_name", Type: types.Text, Source: "orders"},
		{Name: "total_amount", Type: types.Int64, Source: "orders"},
	})
	ordersTable := memory.NewTable(salesDB, "orders", ordersSchema, salesDB.GetForeignKeyCollection())
	salesDB.AddTable("orders", ordersTable)

	session := memory.NewSession(gmssql.NewBaseSession(), provider)
	ctx := gmssql.NewContext(context.Background(), gmssql.WithSession(session))
	ctx.SetCurrentDatabase("sales")

	for i := 1; i <= 10; i++ {
		insertSQL := fmt.Sprintf("INSERT INTO orders VALUES (%d, 'customer %d', %d)", i, i, i*100)
		_, iter, err := engine.Query(ctx, insertSQL)
		require.NoError(t, err)
		_, err = gmssql.RowIterToRows(ctx, iter)
		require.NoError(t, err)
	}

	cfg := server.Config{
		Protocol: "tcp",
		Address:  fmt.Sprintf("localhost:%d", port),
	}
	sessionBuilder := func(ctx context.Context, conn *mysql.Conn, addr string) (gmssql.Session, error) {
		return memory.NewSession(gmssql.NewBaseSession(), provider), nil
	}
	s, err := server.NewServer(cfg, engine, sessionBuilder, nil)
	require.NoError(t, err)

	go func() {
		_ = s.Start()
	}()
	t.Cleanup(func() { _ = s.Close() })

	// poll readiness so connections never race the listener
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return port
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("test MySQL server did not start in time")
	return 0
}

func principalWithCredentials(user string) *models.Principal {
	return &models.Principal{
		UserID:     3,
		Username:   user,
		DBUser:     user,
		DBPassword: "",
		Permissions: models.Permissions{
			Databases: []string{models.Wildcard},
			Tables:    []string{models.Wildcard},
			Columns:   []string{models.Wildcard},
		},
	}
}

// TestExecute_SelectRows runs a real SELECT through a principal-scoped
// pool against the temporary server.
func TestExecute_SelectRows(t *testing.T) {
	port := startTestServer(t)
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "", "", false)
	t.Cleanup(e.Close)

	rs, err := e.Execute(context.Background(), "SELECT order_id, customer_name FROM orders ORDER BY order_id", principalWithCredentials("analyst"), 100)
	require.NoError(t, err)

	assert.Equal(t, []string{"order_id", "customer_name"}, rs.Columns)
	require.Len(t, rs.Rows, 10)
	assert.Equal(t, "customer 1", rs.Rows[0][1])
}

// TestExecute_RowCap checks that results are truncated at maxRows.
func TestExecute_RowCap(t *testing.T) {
	port := startTestServer(t)
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "", "", false)
	t.Cleanup(e.Close)

	rs, err := e.Execute(context.Background(), "SELECT order_id FROM orders", principalWithCredentials("analyst"), 3)
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 3)
}

// TestExecute_EngineError surfaces engine rejections verbatim rather than
// as connection failures.
func TestExecute_EngineError(t *testing.T) {
	port := startTestServer(t)
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "", "", false)
	t.Cleanup(e.Close)

	_, err := e.Execute(context.Background(), "SELECT no_such_col FROM orders", principalWithCredentials("analyst"), 100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConnectionUnavailable)
	assert.NotErrorIs(t, err, ErrNoCredentials)
}

// TestExecute_NoCredentialsFallbackDisabled checks that a principal
// without database credentials is rejected when the shared fallback is
// off.
func TestExecute_NoCredentialsFallbackDisabled(t *testing.T) {
	port := startTestServer(t)
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "shared", "", false)
	t.Cleanup(e.Close)

	p := &models.Principal{UserID: 4, Username: "nobody"}
	_, err := e.Execute(context.Background(), "SELECT order_id FROM orders", p, 100)
	require.ErrorIs(t, err, ErrNoCredentials)
}

// TestExecute_SharedFallbackEnabled checks that the shared service
// account carries the query when the fallback policy allows it.
func TestExecute_SharedFallbackEnabled(t *testing.T) {
	port := startTestServer(t)
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "shared", "", true)
	t.Cleanup(e.Close)

	p := &models.Principal{UserID: 4, Username: "nobody"}
	rs, err := e.Execute(context.Background(), "SELECT order_id FROM orders LIMIT 1", p, 100)
	require.NoError(t, err)
	assert.Len(t, rs.Rows, 1)
}

// TestExecute_ConnectionUnavailable checks the sentinel for an
// unreachable target.
func TestExecute_ConnectionUnavailable(t *testing.T) {
	port := freePort(t) // nothing listens here
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "", "", false)
	t.Cleanup(e.Close)

	_, err := e.Execute(context.Background(), "SELECT 1", principalWithCredentials("analyst"), 100)
	require.ErrorIs(t, err, ErrConnectionUnavailable)
}

// TestExecute_PoolReuse checks that two executions under the same account
// share one pool.
func TestExecute_PoolReuse(t *testing.T) {
	port := startTestServer(t)
	e := NewMySQLExecutorForTarget("localhost", port, "sales", "", "", false)
	t.Cleanup(e.Close)

	p := principalWithCredentials("analyst")
	for i := 0; i < 2; i++ {
		_, err := e.Execute(context.Background(), "SELECT order_id FROM orders LIMIT 1", p, 100)
		require.NoError(t, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Len(t, e.pools, 1)
}
