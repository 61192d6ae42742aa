package models

import "time"

// QueryHistory maps to the query_history audit table. One row is written
// per pipeline run, successful or not.
type QueryHistory struct {
	ID              uint      `gorm:"primaryKey;column:id" json:"id"`
	UserID          uint      `gorm:"column:user_id;index" json:"user_id"`
	Username        string    `gorm:"column:username;size:64" json:"username"`
	Question        string    `gorm:"column:question;type:text" json:"question"`
	GeneratedSQL    string    `gorm:"column:generated_sql;type:text" json:"generated_sql"`
	Outcome         string    `gorm:"column:outcome;size:32" json:"outcome"`
	ErrorMessage    string    `gorm:"column:error_message;type:text" json:"error_message"`
	Confidence      float64   `gorm:"column:confidence" json:"confidence"`
	RefinementCount int       `gorm:"column:refinement_count" json:"refinement_count"`
	RowCount        int       `gorm:"column:row_count" json:"row_count"`
	DurationMs      int64     `gorm:"column:duration_ms" json:"duration_ms"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName returns the database table name for QueryHistory model.
func (QueryHistory) TableName() string {
	return "query_history"
}
