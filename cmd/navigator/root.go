package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Stanleyhoo1/Afterversed/internal/bootstrap"
	"github.com/Stanleyhoo1/Afterversed/internal/config"
	"github.com/Stanleyhoo1/Afterversed/internal/console"
	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
	"github.com/Stanleyhoo1/Afterversed/internal/usecase"
	"github.com/spf13/cobra"
)

// overrides holds flags that take precedence over the environment.
type overrides struct {
	headless      bool
	maxIterations int
	timeout       time.Duration
	provider      string
	script        string
}

func (o *overrides) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("headless") {
		cfg.BrowserConfig.Headless = o.headless
	}

	if flags.Changed("max-iterations") {
		cfg.AgentConfig.MaxIterations = o.maxIterations
	}

	if flags.Changed("timeout") {
		cfg.AgentConfig.TaskTimeout = o.timeout
	}

	if flags.Changed("provider") {
		cfg.AIConfig.Provider = o.provider
	}

	if o.script != "" {
		cfg.AIConfig.Provider = config.ProviderScripted
		cfg.AIConfig.ScriptPath = o.script
	}
}

// newRootCommand builds a fresh command tree so flag state never leaks between runs.
func newRootCommand() *cobra.Command {
	var (
		flags overrides
		cfg   *config.Config
	)

	root := &cobra.Command{
		Use:           "navigator",
		Short:         "LLM-guided browsing of UK bereavement services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.GetConfig()
			if err != nil {
				return err
			}

			flags.apply(cmd, loaded)

			if err := loaded.Validate(); err != nil {
				return err
			}

			cfg = loaded

			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&flags.headless, "headless", false, "run the browser without a window")
	pf.IntVar(&flags.maxIterations, "max-iterations", 16, "default decision budget per task")
	pf.DurationVar(&flags.timeout, "timeout", 5*time.Minute, "wall-clock limit per task")
	pf.StringVar(&flags.provider, "provider", config.ProviderGemini, "decision provider: gemini, anthropic or scripted")
	pf.StringVar(&flags.script, "script", "", "replay decisions from a YAML script instead of calling a model")

	var postcode, borough string

	register := &cobra.Command{
		Use:   "register-death <location>",
		Short: "Find the register office for a death and reach its booking form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := taskconfig.RegistrarInputs{DeathLocation: args[0], Postcode: postcode, PreferredBorough: borough}

			return runTask(cmd, cfg, func(ctx context.Context, svc *usecase.Service) (any, *entity.Run, error) {
				res, run, err := svc.Tasks.RegisterDeath(ctx, in)

				return res, run, err
			})
		},
	}
	register.Flags().StringVar(&postcode, "postcode", "", "postcode where the death occurred")
	register.Flags().StringVar(&borough, "borough", "", "preferred London borough when the location is ambiguous")

	funeral := &cobra.Command{
		Use:   "find-funeral <location>",
		Short: "Build a price catalogue of funeral directors near a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, cfg, func(ctx context.Context, svc *usecase.Service) (any, *entity.Run, error) {
				res, run, err := svc.Tasks.FindFuneralHomes(ctx, args[0])

				return res, run, err
			})
		},
	}

	notify := &cobra.Command{
		Use:   "notify",
		Short: "Collect the organisations to notify after a death",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, cfg, func(ctx context.Context, svc *usecase.Service) (any, *entity.Run, error) {
				res, run, err := svc.Tasks.FindNotifiableOrganisations(ctx)

				return res, run, err
			})
		},
	}

	var taskFile string

	run := &cobra.Command{
		Use:   "run",
		Short: "Run a task described in a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			task, err := taskconfig.LoadFile(taskFile)
			if err != nil {
				return err
			}

			return runTask(cmd, cfg, func(ctx context.Context, svc *usecase.Service) (any, *entity.Run, error) {
				run, err := svc.Tasks.RunCustom(ctx, task)
				if err != nil {
					return nil, run, err
				}

				return run.Result, run, nil
			})
		},
	}
	run.Flags().StringVar(&taskFile, "task", "", "path to the task YAML file")
	_ = run.MarkFlagRequired("task")

	interactive := &cobra.Command{
		Use:   "console",
		Short: "Start the interactive console",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			app := bootstrap.NewConsoleApp(cfg)
			if err := app.Err(); err != nil {
				return err
			}

			app.Run()

			return nil
		},
	}

	root.AddCommand(register, funeral, notify, run, interactive)

	return root
}

type taskFunc func(ctx context.Context, svc *usecase.Service) (any, *entity.Run, error)

// runTask prints the result on success and the structured failure otherwise.
func runTask(cmd *cobra.Command, cfg *config.Config, fn taskFunc) error {
	return bootstrap.Run(cmd.Context(), cfg, func(ctx context.Context, svc *usecase.Service) error {
		res, run, err := fn(ctx, svc)

		return report(cmd.OutOrStdout(), res, run, err)
	})
}

func report(w io.Writer, res any, run *entity.Run, err error) error {
	if err == nil {
		return console.WriteJSON(w, res)
	}

	if run != nil && run.Failure != nil {
		if writeErr := console.WriteJSON(w, run.Failure); writeErr != nil {
			return writeErr
		}
	}

	return fmt.Errorf("task failed: %w", err)
}
