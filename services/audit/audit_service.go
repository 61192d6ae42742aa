// Package audit persists one record per pipeline run for accountability.
package audit

import (
	"time"

	"genbiapi/models"
	"genbiapi/pkg/logger"
	"genbiapi/repository"
	"genbiapi/services/pipeline"
)

// AuditService records pipeline runs and serves the query history.
type AuditService interface {
	Record(principal *models.Principal, result *pipeline.Result, duration time.Duration)
	Recent(limit int) ([]models.QueryHistory, error)
	ForUser(userID uint, limit int) ([]models.QueryHistory, error)
}

type auditService struct {
	historyRepo repository.QueryHistoryRepository
}

// NewAuditService creates a new audit service instance.
func NewAuditService() AuditService {
	return &auditService{
		historyRepo: repository.NewQueryHistoryRepository(),
	}
}

// Record writes the run to the history table. Audit failures are logged,
// never propagated: a query result is not withheld because its audit row
// could not be written.
func (s *auditService) Record(principal *models.Principal, result *pipeline.Result, duration time.Duration) {
	entry := &models.QueryHistory{
		UserID:          principal.UserID,
		Username:        principal.Username,
		Question:        result.Question,
		GeneratedSQL:    result.SQL,
		Outcome:         string(result.Outcome),
		ErrorMessage:    result.Error,
		Confidence:      result.Confidence,
		RefinementCount: result.RefinementCount,
		DurationMs:      duration.Milliseconds(),
	}
	if result.Rows != nil {
		entry.RowCount = len(result.Rows.Rows)
	}
	if err := s.historyRepo.Create(nil, entry); err != nil {
		logger.Errorf("Failed to record query history for user %s: %v", principal.Username, err)
	}
}

// Recent returns the newest history entries across all users.
func (s *auditService) Recent(limit int) ([]models.QueryHistory, error) {
	return s.historyRepo.GetRecent(nil, limit)
}

// ForUser returns the newest history entries for one user.
func (s *auditService) ForUser(userID uint, limit int) ([]models.QueryHistory, error) {
	return s.historyRepo.GetByUserID(nil, userID, limit)
}
