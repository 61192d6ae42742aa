package utils

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"genbiapi/pkg/logger"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gin-gonic/gin"
)

func createLoggerWriter(filePath string) (io.Writer, error) {
	dir := filepath.Dir(filePath)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create log directory: %v", err)
	}
	if err := os.Chmod(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot chmod log directory: %v", err)
	}

	logFile := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	return logFile, nil
}

// InitLoggerWithConfig initializes the structured logger with full rotation config.
func InitLoggerWithConfig(filePath, level string, maxSize, maxBackups, maxAge int, compress bool) {
	logLevel := logger.ParseLogLevel(level)
	logger.InitWithConfig(filePath, logLevel, maxSize, maxBackups, maxAge, compress)
	logger.Infof("Logger initialized with level %s at: %s", level, filePath)
}

// NewCustomLogger creates a dedicated rotating file logger.
func NewCustomLogger(filePath string) (*log.Logger, error) {
	writer, err := createLoggerWriter(filePath)
	if err != nil {
		return nil, err
	}
	l := log.New(writer, "", log.LstdFlags|log.Lshortfile)
	return l, nil
}

var denialLogger *log.Logger
var once sync.Once

// GetDenialLogger returns a singleton logger instance for access-denial auditing.
func GetDenialLogger() *log.Logger {
	once.Do(func() {
		l, err := NewCustomLogger("/var/log/genbi/access_denied.log")
		if err != nil {
			log.Printf("[ERROR] Cannot init access denial logger: %v", err)
		} else {
			denialLogger = l
		}
	})
	return denialLogger
}

// LoggerMiddleware logs every HTTP request with status-dependent severity.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)
		status := c.Writer.Status()

		if status >= 500 {
			logger.Errorf("HTTP %s %s - Status: %d, Duration: %v, IP: %s",
				c.Request.Method, c.Request.URL.Path, status, elapsed, c.ClientIP())
		} else if status >= 400 {
			logger.Warnf("HTTP %s %s - Status: %d, Duration: %v, IP: %s",
				c.Request.Method, c.Request.URL.Path, status, elapsed, c.ClientIP())
		} else {
			logger.Infof("HTTP %s %s - Status: %d, Duration: %v, IP: %s",
				c.Request.Method, c.Request.URL.Path, status, elapsed, c.ClientIP())
		}
	}
}

// JSONResponse sends a JSON response with the specified HTTP status code.
func JSONResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// ErrorResponse logs and sends a standardized error response with HTTP 400 status.
func ErrorResponse(c *gin.Context, err error) {
	logger.Errorf("API Error: %v", err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error": err.Error(),
	})
}
