package adapters

import (
	"context"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
)

type TaskService interface {
	RegisterDeath(ctx context.Context, in taskconfig.RegistrarInputs) (*entity.RegistrarResult, *entity.Run, error)
	FindFuneralHomes(ctx context.Context, location string) (*entity.Catalogue, *entity.Run, error)
	FindNotifiableOrganisations(ctx context.Context) (*entity.OrganisationDirectory, *entity.Run, error)
	RunCustom(ctx context.Context, task *taskconfig.TaskConfiguration) (*entity.Run, error)
}

type SessionService interface {
	Release(ctx context.Context) error
}
