package entity

import "time"

// Stage names a pipeline step recorded in the run log.
type Stage string

const (
	StageDirectory    Stage = "directory"
	StagePlanner      Stage = "planner"
	StageFill         Stage = "fill"
	StageFullPipeline Stage = "full_pipeline"
)

// RunStatus is the result of one stage.
type RunStatus string

const (
	RunSuccess     RunStatus = "success"
	RunFailed      RunStatus = "failed"
	RunInterrupted RunStatus = "interrupted"
)

// RunLog is one stage of one pipeline run.
type RunLog struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	RunID            string         `gorm:"size:36;not null;index" json:"run_id"`
	Stage            Stage          `gorm:"size:32;not null" json:"stage"`
	Status           RunStatus      `gorm:"size:16;not null" json:"status"`
	SymbolsProcessed int            `gorm:"not null;default:0" json:"symbols_processed"`
	RecordsWritten   int            `gorm:"not null;default:0" json:"records_written"`
	ErrorsCount      int            `gorm:"not null;default:0" json:"errors_count"`
	ErrorMessage     string         `gorm:"type:text" json:"error_message,omitempty"`
	Metadata         map[string]any `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	StartedAt        time.Time      `gorm:"not null" json:"started_at"`
	FinishedAt       time.Time      `gorm:"not null" json:"finished_at"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (RunLog) TableName() string {
	return "pipeline_logs"
}
