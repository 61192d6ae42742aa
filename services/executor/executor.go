// Package executor runs SQL against the target database through
// connection pools scoped to the requesting principal's own database
// credentials.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"genbiapi/config"
	"genbiapi/models"
	"genbiapi/pkg/logger"

	_ "github.com/go-sql-driver/mysql"
)

// ErrConnectionUnavailable signals that no target database connection could
// be acquired within the configured timeout. Retryable by the caller.
var ErrConnectionUnavailable = errors.New("target database connection unavailable")

// ErrNoCredentials signals that the principal has no database credentials
// and the shared-connection fallback is disabled.
var ErrNoCredentials = errors.New("principal has no database credentials and shared fallback is disabled")

// RowSet is a tabular query result.
type RowSet struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// QueryExecutor executes row-limited SELECT statements on behalf of a
// principal. Implementations must honor principal-scoped connections.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string, principal *models.Principal, maxRows int) (*RowSet, error)
}

// MySQLExecutor maintains one bounded connection pool per database account.
// Pools are created lazily and shared by requests running under the same
// account.
type MySQLExecutor struct {
	mu    sync.Mutex
	pools map[string]*sql.DB

	host         string
	port         int
	dbName       string
	sharedUser   string
	sharedPass   string
	allowShared  bool
	connTimeout  time.Duration
	queryTimeout time.Duration
	maxOpenConns int
	maxIdleConns int
}

// NewMySQLExecutor creates an executor for the configured target database.
func NewMySQLExecutor() *MySQLExecutor {
	return &MySQLExecutor{
		pools:        map[string]*sql.DB{},
		host:         config.Cfg.TargetDBHost,
		port:         config.Cfg.TargetDBPort,
		dbName:       config.Cfg.TargetDBName,
		sharedUser:   config.Cfg.TargetDBUser,
		sharedPass:   config.Cfg.TargetDBPass,
		allowShared:  config.Cfg.SharedConnFallback,
		connTimeout:  config.Cfg.PoolConnTimeout,
		queryTimeout: config.Cfg.QueryTimeout,
		maxOpenConns: config.Cfg.PoolMaxOpenConns,
		maxIdleConns: config.Cfg.PoolMaxIdleConns,
	}
}

// NewMySQLExecutorForTarget creates an executor for an explicit target,
// bypassing the global config. Used by tests against temporary servers.
func NewMySQLExecutorForTarget(host string, port int, dbName, sharedUser, sharedPass string, allowShared bool) *MySQLExecutor {
	return &MySQLExecutor{
		pools:        map[string]*sql.DB{},
		host:         host,
		port:         port,
		dbName:       dbName,
		sharedUser:   sharedUser,
		sharedPass:   sharedPass,
		allowShared:  allowShared,
		connTimeout:  5 * time.Second,
		queryTimeout: 30 * time.Second,
		maxOpenConns: 5,
		maxIdleConns: 2,
	}
}

// Execute runs sqlText under the principal's database account and returns at
// most maxRows rows. When the principal has no dedicated account, the shared
// service account is used only if the fallback policy allows it, and the
// widening is logged.
func (e *MySQLExecutor) Execute(ctx context.Context, sqlText string, principal *models.Principal, maxRows int) (*RowSet, error) {
	pool, err := e.poolFor(principal)
	if err != nil {
		return nil, err
	}

	acquireCtx, cancel := context.WithTimeout(ctx, e.connTimeout)
	conn, err := pool.Conn(acquireCtx)
	cancel()
	if err != nil {
		logger.Warnf("Connection acquisition failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrConnectionUnavailable, err)
	}
	defer conn.Close()

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	rows, err := conn.QueryContext(queryCtx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &RowSet{Columns: columns}
	for rows.Next() {
		if maxRows > 0 && len(result.Rows) >= maxRows {
			logger.Warnf("Result truncated at row cap %d", maxRows)
			break
		}
		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// poolFor returns the pool for the principal's account, creating it on
// first use.
func (e *MySQLExecutor) poolFor(principal *models.Principal) (*sql.DB, error) {
	user, pass := principal.DBUser, principal.DBPassword
	if !principal.HasOwnDBCredentials() {
		if !e.allowShared {
			return nil, ErrNoCredentials
		}
		logger.Warnf("Principal %s has no database credentials, executing via shared service account per fallback policy", principal.Username)
		user, pass = e.sharedUser, e.sharedPass
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if pool, ok := e.pools[user]; ok {
		return pool, nil
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, pass, e.host, e.port, e.dbName)
	pool, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open target database pool for %s: %w", user, err)
	}
	pool.SetMaxOpenConns(e.maxOpenConns)
	pool.SetMaxIdleConns(e.maxIdleConns)
	pool.SetConnMaxLifetime(time.Hour)

	e.pools[user] = pool
	logger.Infof("Opened target database pool for account %s", user)
	return pool, nil
}

// Close shuts down all pools.
func (e *MySQLExecutor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for user, pool := range e.pools {
		if err := pool.Close(); err != nil {
			logger.Warnf("Failed to close pool for %s: %v", user, err)
		}
	}
	e.pools = map[string]*sql.DB{}
}
