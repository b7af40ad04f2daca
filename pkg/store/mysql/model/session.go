package model

import "time"

// Session MySQL model for sessions table
type Session struct {
	ID                 string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	WorkerID           string     `gorm:"column:worker_id;type:varchar(36);not null;index:idx_worker_id" json:"worker_id"`
	StationID          *string    `gorm:"column:station_id;type:varchar(36);index:idx_station_id" json:"station_id"`
	JobID              *string    `gorm:"column:job_id;type:varchar(36)" json:"job_id"`
	JobItemID          *string    `gorm:"column:job_item_id;type:varchar(36)" json:"job_item_id"`
	Status             string     `gorm:"column:status;type:varchar(20);not null;index:idx_status_last_seen,priority:1" json:"status"`
	CurrentStatusID    *string    `gorm:"column:current_status_id;type:varchar(36)" json:"current_status_id"`
	LastStatusChangeAt *time.Time `gorm:"column:last_status_change_at;type:datetime(3)" json:"last_status_change_at"`
	StartedAt          time.Time  `gorm:"column:started_at;type:datetime(3);not null" json:"started_at"`
	LastSeenAt         time.Time  `gorm:"column:last_seen_at;type:datetime(3);not null;index:idx_status_last_seen,priority:2" json:"last_seen_at"`
	EndedAt            *time.Time `gorm:"column:ended_at;type:datetime(3)" json:"ended_at"`
	ForcedClosedAt     *time.Time `gorm:"column:forced_closed_at;type:datetime(3)" json:"forced_closed_at"`
	TotalGood          int64      `gorm:"column:total_good;not null;default:0" json:"total_good"`
	TotalScrap         int64      `gorm:"column:total_scrap;not null;default:0" json:"total_scrap"`
	LastNote           string     `gorm:"column:last_note;type:text" json:"last_note"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3)" json:"updated_at"`
}

// TableName specifies the table name for Session
func (Session) TableName() string {
	return "sessions"
}

// SessionView session row joined with the display names of its worker, station and job
type SessionView struct {
	Session
	WorkerName  string `gorm:"column:worker_name"`
	StationName string `gorm:"column:station_name"`
	JobNumber   string `gorm:"column:job_number"`
}

// Worker read-only lookup of worker display names
type Worker struct {
	ID   string `gorm:"column:id;type:varchar(36);primaryKey"`
	Name string `gorm:"column:name;type:varchar(255);not null"`
}

// TableName specifies the table name for Worker
func (Worker) TableName() string {
	return "workers"
}

// Station read-only lookup of station display names
type Station struct {
	ID   string `gorm:"column:id;type:varchar(36);primaryKey"`
	Name string `gorm:"column:name;type:varchar(255);not null"`
}

// TableName specifies the table name for Station
func (Station) TableName() string {
	return "stations"
}

// Job read-only lookup of job numbers
type Job struct {
	ID        string `gorm:"column:id;type:varchar(36);primaryKey"`
	JobNumber string `gorm:"column:job_number;type:varchar(64);not null"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "jobs"
}
