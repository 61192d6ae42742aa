package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"genbiapi/bootstrap"
	"genbiapi/config"
	"genbiapi/controllers"
	_ "genbiapi/docs"
	"genbiapi/pkg/logger"
	"genbiapi/services/audit"
	"genbiapi/services/auth"
	"genbiapi/services/executor"
	"genbiapi/services/oracle"
	"genbiapi/services/pipeline"
	"genbiapi/services/policy"
	"genbiapi/services/schema"
	"genbiapi/services/semantic"
	"genbiapi/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           genbiapi
// @version         1.0
// @description     Natural-language BI query API

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @BasePath  /api

func main() {
	// 1) Load config
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("LoadConfig error: %v", err)
	}

	// 2) Connect application DB (GORM)
	if err := config.ConnectDB(); err != nil {
		log.Fatalf("ConnectDB error: %v", err)
	}
	if config.DB == nil {
		log.Fatal("Database is nil after ConnectDB")
	}

	if err := bootstrap.LoadData(); err != nil {
		log.Fatalf("Load data error: %v", err)
	}

	// 3) Init structured logger with config
	logLevel := logger.ParseLogLevel(config.Cfg.LogLevel)
	logger.InitWithConfig(
		config.Cfg.LogFile,
		logLevel,
		config.Cfg.LogMaxSize,
		config.Cfg.LogMaxBackups,
		config.Cfg.LogMaxAge,
		config.Cfg.LogCompress,
	)
	logger.Infof("Starting genbiapi with log level: %s", config.Cfg.LogLevel)

	// 4) Build the query pipeline
	targetDB, err := openTargetDB()
	if err != nil {
		log.Fatalf("Target DB error: %v", err)
	}

	introspector := schema.NewMySQLIntrospector(targetDB, config.Cfg.TargetDBName)
	provider := schema.NewProvider(introspector)

	index := semantic.NewLexicalIndex()
	if graph, err := provider.GetSchema(context.Background()); err != nil {
		logger.Warnf("Initial schema introspection failed, index starts empty: %v", err)
	} else {
		index.Rebuild(graph)
	}

	builder := schema.NewContextBuilder(index, config.Cfg.SimilarityTopK)

	completionOracle, err := oracle.NewAnthropicOracle()
	if err != nil {
		log.Fatalf("Oracle init error: %v", err)
	}
	predictor := schema.NewTablePredictor(completionOracle)

	policyEngine := policy.NewEngine(policy.NewLexicalExtractor(), config.Cfg.ColumnCheckLimit)

	exec := executor.NewMySQLExecutor()
	validator := pipeline.NewValidator(exec)

	queryPipeline := pipeline.New(provider, builder, predictor, policyEngine,
		completionOracle, validator, exec, pipeline.Options{
			MaxRefinements: config.Cfg.MaxRefinements,
			Budget:         config.Cfg.PipelineBudget,
			MaxResultRows:  config.Cfg.MaxResultRows,
		})

	sessions := auth.NewSessionStore(config.Cfg.SessionTTL)
	controllers.SetAuthService(auth.NewAuthService(sessions))
	controllers.SetAuditService(audit.NewAuditService())
	controllers.SetQueryPipeline(queryPipeline)
	controllers.SetSchemaProvider(provider)
	controllers.SetPolicyEngine(policyEngine)
	controllers.SetLexicalIndex(index)

	// 5) Setup Gin
	router := gin.Default()
	router.Use(utils.LoggerMiddleware())

	v1 := router.Group("/api")
	{
		controllers.RegisterAuthRoutes(v1)
		controllers.RegisterQueryRoutes(v1)
		controllers.RegisterSchemaRoutes(v1)
	}

	// 6) Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 7) Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Infof("Received shutdown signal, closing connections...")
		if err := targetDB.Close(); err != nil {
			logger.Warnf("Target DB close error: %v", err)
		}
		logger.Infof("Application shutdown complete")
		os.Exit(0)
	}()

	// 8) Run
	logger.Infof("Starting server at %s", config.Cfg.ListenAddr)
	router.Run(config.Cfg.ListenAddr)
}

// openTargetDB opens the metadata connection used for schema introspection.
// Query execution uses per-principal connections managed by the executor.
func openTargetDB() (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		config.Cfg.TargetDBUser, config.Cfg.TargetDBPass,
		config.Cfg.TargetDBHost, config.Cfg.TargetDBPort, config.Cfg.TargetDBName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(config.Cfg.PoolMaxOpenConns)
	db.SetMaxIdleConns(config.Cfg.PoolMaxIdleConns)
	return db, nil
}
