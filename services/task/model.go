package task

import (
	"time"

	"gorm.io/datatypes"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSuccess   JobStatus = "success"
	JobFailed    JobStatus = "failed"
	JobDuplicate JobStatus = "duplicate"
)

// Job is an execution record for one scheduled task run.
type Job struct {
	ID          string         `gorm:"column:id;primaryKey;type:varchar(32)"`
	TaskName    string         `gorm:"column:task_name;index;type:varchar(100);not null"`
	Status      JobStatus      `gorm:"column:status;type:varchar(20);not null;default:'pending'"`
	ErrorMsg    string         `gorm:"column:error_msg;type:text"`
	Payload     datatypes.JSON `gorm:"column:payload"`
	StartedAt   *time.Time     `gorm:"column:started_at"`
	CompletedAt *time.Time     `gorm:"column:completed_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

type ClosePeriodPayload struct {
	JobID       string    `json:"job_id,omitempty"`
	PeriodType  string    `json:"period_type"`
	PeriodStart time.Time `json:"period_start"`
}
