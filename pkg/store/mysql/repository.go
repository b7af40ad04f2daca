package mysql

import "floorsync/pkg/config"

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	Session          *SessionRepository
	StatusEvent      *StatusEventRepository
	StatusDefinition *StatusDefinitionRepository
	Pipeline         *PipelineRepository
}

// NewRepository opens the database and builds every sub-repository
func NewRepository(cfg config.MySQLConfig) (*Repository, error) {
	ds, err := NewDatastore(cfg)
	if err != nil {
		return nil, err
	}
	return NewRepositoryFromDatastore(ds), nil
}

// NewRepositoryFromDatastore builds the sub-repositories over an existing datastore
func NewRepositoryFromDatastore(ds *Datastore) *Repository {
	return &Repository{
		ds:               ds,
		Session:          NewSessionRepository(ds),
		StatusEvent:      NewStatusEventRepository(ds),
		StatusDefinition: NewStatusDefinitionRepository(ds),
		Pipeline:         NewPipelineRepository(ds),
	}
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
