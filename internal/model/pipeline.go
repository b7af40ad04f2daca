package model

// JobItem a produced item routed through an ordered pipeline
type JobItem struct {
	ID              string `json:"id"`
	JobID           string `json:"job_id"`
	PlannedQuantity int64  `json:"planned_quantity"`
}

// PipelineStep one station position on a job item's route, with its WIP balance
type PipelineStep struct {
	ID                   string `json:"id"`
	JobItemID            string `json:"job_item_id"`
	StationID            string `json:"station_id"`
	StationName          string `json:"station_name,omitempty"`
	Position             int    `json:"position"`
	IsTerminal           bool   `json:"is_terminal"`
	RequiresFirstArticle bool   `json:"requires_first_article"`
	Wip                  int64  `json:"wip"`
}

// PipelineContext what a station screen needs to render a job item's route
type PipelineContext struct {
	SessionID       string          `json:"session_id"`
	JobItemID       string          `json:"job_item_id"`
	PlannedQuantity int64           `json:"planned_quantity"`
	Steps           []*PipelineStep `json:"steps"`
}
