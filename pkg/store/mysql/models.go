package mysql

import "floorsync/pkg/store/mysql/model"

type (
	Session          = model.Session
	SessionView      = model.SessionView
	StatusDefinition = model.StatusDefinition
	StatusEvent      = model.StatusEvent
	JobItem          = model.JobItem
	PipelineStep     = model.PipelineStep
	PipelineStepView = model.PipelineStepView
	WipBalance       = model.WipBalance
)
