package usecase

import (
	"github.com/Stanleyhoo1/Afterversed/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateTaskService() adapters.TaskService {
	return NewTaskService(f.deps.Runner, f.deps.Logger)
}

func (f *serviceFactory) CreateSessionService() adapters.SessionService {
	return f.deps.Session
}
