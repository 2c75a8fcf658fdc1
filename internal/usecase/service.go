package usecase

import (
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/internal/usecase/adapters"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service is what the front ends (CLI and console) talk to.
type Service struct {
	Tasks   adapters.TaskService
	Session adapters.SessionService
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Runner  ports.TaskRunner
	Session ports.SessionReleaser
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Tasks:   factory.CreateTaskService(),
		Session: factory.CreateSessionService(),
	}
}
