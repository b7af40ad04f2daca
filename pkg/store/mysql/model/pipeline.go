package model

// JobItem MySQL model for job_items table
type JobItem struct {
	ID              string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	JobID           string `gorm:"column:job_id;type:varchar(36);not null;index:idx_job_id" json:"job_id"`
	PlannedQuantity int64  `gorm:"column:planned_quantity;not null;default:0" json:"planned_quantity"`
}

// TableName specifies the table name for JobItem
func (JobItem) TableName() string {
	return "job_items"
}

// PipelineStep MySQL model for pipeline_steps table
type PipelineStep struct {
	ID                   string `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	JobItemID            string `gorm:"column:job_item_id;type:varchar(36);not null;uniqueIndex:idx_item_position,priority:1" json:"job_item_id"`
	StationID            string `gorm:"column:station_id;type:varchar(36);not null" json:"station_id"`
	Position             int    `gorm:"column:position;not null;uniqueIndex:idx_item_position,priority:2" json:"position"`
	IsTerminal           bool   `gorm:"column:is_terminal;not null;default:false" json:"is_terminal"`
	RequiresFirstArticle bool   `gorm:"column:requires_first_article;not null;default:false" json:"requires_first_article"`
}

// TableName specifies the table name for PipelineStep
func (PipelineStep) TableName() string {
	return "pipeline_steps"
}

// WipBalance good units that passed a step and have not yet reached the terminal step
type WipBalance struct {
	JobItemID     string `gorm:"column:job_item_id;type:varchar(36);primaryKey" json:"job_item_id"`
	StepID        string `gorm:"column:step_id;type:varchar(36);primaryKey" json:"step_id"`
	GoodAvailable int64  `gorm:"column:good_available;not null;default:0" json:"good_available"`
}

// TableName specifies the table name for WipBalance
func (WipBalance) TableName() string {
	return "wip_balances"
}

// PipelineStepView step joined with its station name and WIP balance
type PipelineStepView struct {
	PipelineStep
	StationName string `gorm:"column:station_name"`
	Wip         int64  `gorm:"column:wip"`
}

// All returns every table model, in creation order
func All() []interface{} {
	return []interface{}{
		&Worker{}, &Station{}, &Job{},
		&Session{}, &StatusDefinition{}, &StatusEvent{},
		&JobItem{}, &PipelineStep{}, &WipBalance{},
	}
}
