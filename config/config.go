package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds application configuration loaded from environment variables and .env file.
type AppConfig struct {
	// Application metadata store (users, query history)
	DBHost string
	DBPort int
	DBUser string
	DBPass string
	DBName string

	// Target database the generated SQL runs against
	TargetDBHost string
	TargetDBPort int
	TargetDBUser string
	TargetDBPass string
	TargetDBName string

	// HTTP server config
	ListenAddr string

	// Logging config
	LogLevel      string
	LogFile       string
	LogMaxSize    int // MB
	LogMaxBackups int
	LogMaxAge     int // days
	LogCompress   bool

	// LLM oracle config
	AnthropicAPIKey string
	OracleModel     string
	OracleMaxTokens int
	OracleTimeout   time.Duration // Timeout per completion call

	// Pipeline config
	MaxRefinements     int           // Maximum SQL refinement attempts per request
	PipelineBudget     time.Duration // Wall-clock budget for one pipeline run
	SimilarityTopK     int           // Schema similarity hits seeding the context
	MaxResultRows      int           // Row cap enforced on executed queries
	ColumnCheckLimit   int           // Columns per table checked during pre-generation authorization
	QueryTimeout       time.Duration // Timeout for dry-run and execution database calls
	SharedConnFallback bool          // Allow shared service-account execution when the principal has no DB credentials

	// Per-principal connection pool config
	PoolMaxOpenConns int
	PoolMaxIdleConns int
	PoolConnTimeout  time.Duration

	// Session config
	SessionTTL time.Duration

	// System schemas excluded from introspection
	SystemDatabases []string
}

// Cfg is the global application configuration instance.
var Cfg AppConfig

// LoadConfig loads and validates application configuration from .env file and environment variables.
func LoadConfig() error {
	if err := godotenv.Load(); err != nil {
		// Use standard log here since logger is not initialized yet
		log.Printf("[WARN] .env file not found or cannot be loaded: %v", err)
	} else {
		log.Printf("[INFO] .env file loaded successfully")
	}

	Cfg.DBHost = getEnv("DB_HOST", "127.0.0.1")
	Cfg.DBPort = getEnvInt("DB_PORT", 3306)
	Cfg.DBUser = getEnv("DB_USER", "root")
	Cfg.DBPass = getEnv("DB_PASS", "")
	Cfg.DBName = getEnv("DB_NAME", "genbi")

	Cfg.TargetDBHost = getEnv("TARGET_DB_HOST", Cfg.DBHost)
	Cfg.TargetDBPort = getEnvInt("TARGET_DB_PORT", Cfg.DBPort)
	Cfg.TargetDBUser = getEnv("TARGET_DB_USER", Cfg.DBUser)
	Cfg.TargetDBPass = getEnv("TARGET_DB_PASS", Cfg.DBPass)
	Cfg.TargetDBName = getEnv("TARGET_DB_NAME", "")

	Cfg.ListenAddr = getEnv("LISTEN_ADDR", ":8080")

	// Load logging config
	Cfg.LogLevel = getEnv("LOG_LEVEL", "INFO")
	Cfg.LogFile = getEnv("LOG_FILE", "/var/log/genbi/genbiapi.log")
	Cfg.LogMaxSize = getEnvInt("LOG_MAX_SIZE", 10)
	Cfg.LogMaxBackups = getEnvInt("LOG_MAX_BACKUPS", 3)
	Cfg.LogMaxAge = getEnvInt("LOG_MAX_AGE", 28)
	Cfg.LogCompress = getEnvBool("LOG_COMPRESS", true)

	// Load LLM oracle config
	Cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", "")
	Cfg.OracleModel = getEnv("ORACLE_MODEL", "claude-sonnet-4-5-20250929")
	Cfg.OracleMaxTokens = getEnvInt("ORACLE_MAX_TOKENS", 1024)
	Cfg.OracleTimeout = time.Duration(getEnvInt("ORACLE_TIMEOUT", 30)) * time.Second

	// Load pipeline config
	Cfg.MaxRefinements = getEnvInt("MAX_REFINEMENTS", 2)
	Cfg.PipelineBudget = time.Duration(getEnvInt("PIPELINE_BUDGET", 60)) * time.Second
	Cfg.SimilarityTopK = getEnvInt("SIMILARITY_TOP_K", 20)
	Cfg.MaxResultRows = getEnvInt("MAX_RESULT_ROWS", 1000)
	Cfg.ColumnCheckLimit = getEnvInt("COLUMN_CHECK_LIMIT", 5)
	Cfg.QueryTimeout = time.Duration(getEnvInt("QUERY_TIMEOUT", 30)) * time.Second
	Cfg.SharedConnFallback = getEnvBool("SHARED_CONN_FALLBACK", false)

	// Load connection pool config
	Cfg.PoolMaxOpenConns = getEnvInt("POOL_MAX_OPEN_CONNS", 5)
	Cfg.PoolMaxIdleConns = getEnvInt("POOL_MAX_IDLE_CONNS", 2)
	Cfg.PoolConnTimeout = time.Duration(getEnvInt("POOL_CONN_TIMEOUT", 5)) * time.Second

	Cfg.SessionTTL = time.Duration(getEnvInt("SESSION_TTL", 3600)) * time.Second

	// Load system exclusion list with defaults
	Cfg.SystemDatabases = getEnvStringSlice("SYSTEM_DATABASES", []string{
		"information_schema",
		"mysql",
		"performance_schema",
		"sys",
	})

	log.Printf("[INFO] Config loaded - AppDB: %s@%s:%d/%s, TargetDB: %s:%d/%s, LogLevel: %s",
		Cfg.DBUser, Cfg.DBHost, Cfg.DBPort, Cfg.DBName,
		Cfg.TargetDBHost, Cfg.TargetDBPort, Cfg.TargetDBName, Cfg.LogLevel)
	log.Printf("[INFO] Pipeline config - MaxRefinements: %d, Budget: %v, TopK: %d, MaxRows: %d",
		Cfg.MaxRefinements, Cfg.PipelineBudget, Cfg.SimilarityTopK, Cfg.MaxResultRows)
	log.Printf("[INFO] Oracle config - Model: %s, MaxTokens: %d, Timeout: %v",
		Cfg.OracleModel, Cfg.OracleMaxTokens, Cfg.OracleTimeout)

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

// getEnvStringSlice parses comma-separated environment variable into string slice
// Format: "item1,item2,item3" -> []string{"item1", "item2", "item3"}
func getEnvStringSlice(key string, defaultVal []string) []string {
	if val := os.Getenv(key); val != "" {
		items := strings.Split(val, ",")
		result := make([]string, 0, len(items))
		for _, item := range items {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultVal
}

// IsSystemDatabase checks if a database name is in the system exclusion list.
func IsSystemDatabase(dbName string) bool {
	for _, sysDB := range Cfg.SystemDatabases {
		if dbName == sysDB {
			return true
		}
	}
	return false
}
