package usecase

import (
	"context"
	"encoding/json"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/ports"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
	"github.com/Stanleyhoo1/Afterversed/pkg/apperr"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"go.uber.org/zap"
)

const tasksServiceName = "TaskService"

// TaskService exposes the preset tasks with typed results.
type TaskService struct {
	runner ports.TaskRunner
	logger *zap.Logger
}

func NewTaskService(runner ports.TaskRunner, logger *zap.Logger) *TaskService {
	return &TaskService{
		runner: runner,
		logger: logger.With(zap.String(logg.Layer, tasksServiceName)),
	}
}

// RegisterDeath finds the register office serving the place of death and
// navigates to its appointment booking form.
func (s *TaskService) RegisterDeath(ctx context.Context, in taskconfig.RegistrarInputs) (*entity.RegistrarResult, *entity.Run, error) {
	const op = "TaskService.RegisterDeath"

	if in.DeathLocation == "" && in.Postcode == "" {
		return nil, nil, apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "death_location_or_postcode_required")
	}

	var out entity.RegistrarResult

	run, err := s.runInto(ctx, op, taskconfig.RegisterDeathTask(in), &out)
	if err != nil {
		return nil, run, err
	}

	return &out, run, nil
}

// FindFuneralHomes collects a price catalogue of funeral directors near location.
func (s *TaskService) FindFuneralHomes(ctx context.Context, location string) (*entity.Catalogue, *entity.Run, error) {
	const op = "TaskService.FindFuneralHomes"

	if location == "" {
		return nil, nil, apperr.WrapErrorWithReason(op, apperr.CodeInvalidArgument, "location_required")
	}

	var out entity.Catalogue

	run, err := s.runInto(ctx, op, taskconfig.FuneralCatalogueTask(location), &out)
	if err != nil {
		return nil, run, err
	}

	return &out, run, nil
}

// FindNotifiableOrganisations builds the list of organisations to tell about a death.
func (s *TaskService) FindNotifiableOrganisations(ctx context.Context) (*entity.OrganisationDirectory, *entity.Run, error) {
	const op = "TaskService.FindNotifiableOrganisations"

	var out entity.OrganisationDirectory

	run, err := s.runInto(ctx, op, taskconfig.NotifyDirectoryTask(), &out)
	if err != nil {
		return nil, run, err
	}

	return &out, run, nil
}

// RunCustom runs a caller-supplied task; the result stays raw JSON.
func (s *TaskService) RunCustom(ctx context.Context, task *taskconfig.TaskConfiguration) (*entity.Run, error) {
	return s.runner.Run(ctx, task)
}

func (s *TaskService) runInto(ctx context.Context, op string, task *taskconfig.TaskConfiguration, out any) (*entity.Run, error) {
	run, err := s.runner.Run(ctx, task)
	if err != nil {
		return run, err
	}

	if err := json.Unmarshal(run.Result, out); err != nil {
		s.logger.Error("Validated result does not decode", zap.String(logg.Operation, op), zap.Error(err))

		return run, apperr.Wrap(op, apperr.CodeSchemaViolation, err, map[string]any{
			apperr.MetaReason: "decode_failed",
			apperr.MetaStage:  apperr.StageExtraction,
		})
	}

	return run, nil
}
