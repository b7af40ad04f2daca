package model

import "time"

// StatusDefinition MySQL model for status_definitions table
type StatusDefinition struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Label     string    `gorm:"column:label;type:varchar(255);not null" json:"label"`
	Kind      string    `gorm:"column:kind;type:varchar(20);not null;default:other;index:idx_kind_created,priority:1" json:"kind"`
	CreatedAt time.Time `gorm:"column:created_at;type:datetime(3);not null;default:CURRENT_TIMESTAMP(3);index:idx_kind_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for StatusDefinition
func (StatusDefinition) TableName() string {
	return "status_definitions"
}

// StatusEvent MySQL model for status_events table
type StatusEvent struct {
	ID                 string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	SessionID          string     `gorm:"column:session_id;type:varchar(36);not null;index:idx_session_open,priority:1" json:"session_id"`
	StatusDefinitionID string     `gorm:"column:status_definition_id;type:varchar(36);not null" json:"status_definition_id"`
	Reason             *string    `gorm:"column:reason;type:varchar(64)" json:"reason"`
	StartedAt          time.Time  `gorm:"column:started_at;type:datetime(3);not null" json:"started_at"`
	EndedAt            *time.Time `gorm:"column:ended_at;type:datetime(3);index:idx_session_open,priority:2" json:"ended_at"`
	Note               string     `gorm:"column:note;type:text" json:"note"`
}

// TableName specifies the table name for StatusEvent
func (StatusEvent) TableName() string {
	return "status_events"
}
