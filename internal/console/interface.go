package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/Stanleyhoo1/Afterversed/internal/entity"
	"github.com/Stanleyhoo1/Afterversed/internal/taskconfig"
	"github.com/Stanleyhoo1/Afterversed/internal/usecase"
	"github.com/Stanleyhoo1/Afterversed/pkg/logg"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var errExit = errors.New("exit")

type Interface struct {
	logger  *zap.Logger
	usecase *usecase.Service
	in      io.Reader
	out     io.Writer

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

type Params struct {
	fx.In

	Logger  *zap.Logger
	Usecase *usecase.Service
}

func NewInterface(params Params) *Interface {
	return newInterface(params.Usecase, params.Logger, os.Stdin, os.Stdout)
}

func newInterface(svc *usecase.Service, logger *zap.Logger, in io.Reader, out io.Writer) *Interface {
	return &Interface{
		logger:  logger.With(zap.String(logg.Layer, "Console")),
		usecase: svc,
		in:      in,
		out:     out,
		done:    make(chan struct{}),
	}
}

// Start reads commands until exit, EOF or Stop.
func (i *Interface) Start() error {
	defer i.Stop()

	i.printBanner()
	i.printHelp()

	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(i.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-i.done:
				return
			}
		}
	}()

	for {
		fmt.Fprint(i.out, "\n> ")

		var (
			input string
			ok    bool
		)

		select {
		case input, ok = <-lines:
		case <-i.done:
			return nil
		}

		if !ok {
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if err := i.handleCommand(input); err != nil {
			if errors.Is(err, errExit) {
				return nil
			}

			i.logger.Error("Command error", zap.Error(err))
			fmt.Fprintf(i.out, "Error: %v\n", err)
		}
	}
}

// Stop cancels any running task and ends Start.
func (i *Interface) Stop() {
	i.once.Do(func() {
		i.logger.Info("Stopping console interface")
		i.cancelRunning()
		close(i.done)
	})
}

func (i *Interface) cancelRunning() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		i.cancel()
	}
}

func (i *Interface) taskContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()

	return ctx, func() {
		i.mu.Lock()
		i.cancel = nil
		i.mu.Unlock()
		cancel()
	}
}

func (i *Interface) handleCommand(input string) error {
	fields := strings.Fields(input)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "help", "h":
		i.printHelp()

		return nil
	case "exit", "quit", "q":
		fmt.Fprintln(i.out, "Shutting down...")

		return errExit
	case "register":
		if len(args) == 0 {
			return errors.New("usage: register <location> [postcode]")
		}

		in := taskconfig.RegistrarInputs{DeathLocation: args[0]}
		if len(args) > 1 {
			in.Postcode = strings.Join(args[1:], " ")
		}

		return i.execute("register-death", func(ctx context.Context) (any, *entity.Run, error) {
			res, run, err := i.usecase.Tasks.RegisterDeath(ctx, in)

			return res, run, err
		})
	case "funeral":
		if len(args) == 0 {
			return errors.New("usage: funeral <location>")
		}

		location := strings.Join(args, " ")

		return i.execute("find-funeral", func(ctx context.Context) (any, *entity.Run, error) {
			res, run, err := i.usecase.Tasks.FindFuneralHomes(ctx, location)

			return res, run, err
		})
	case "notify":
		return i.execute("notify", func(ctx context.Context) (any, *entity.Run, error) {
			res, run, err := i.usecase.Tasks.FindNotifiableOrganisations(ctx)

			return res, run, err
		})
	case "run":
		if len(args) != 1 {
			return errors.New("usage: run <task.yaml>")
		}

		task, err := taskconfig.LoadFile(args[0])
		if err != nil {
			return err
		}

		return i.execute(task.Name, func(ctx context.Context) (any, *entity.Run, error) {
			run, err := i.usecase.Tasks.RunCustom(ctx, task)
			if err != nil {
				return nil, run, err
			}

			return run.Result, run, nil
		})
	case "release":
		ctx, done := i.taskContext()
		defer done()

		if err := i.usecase.Session.Release(ctx); err != nil {
			return err
		}

		fmt.Fprintln(i.out, "Browser closed.")

		return nil
	default:
		return fmt.Errorf("unknown command %q, type help", name)
	}
}

func (i *Interface) execute(label string, fn func(ctx context.Context) (any, *entity.Run, error)) error {
	ctx, done := i.taskContext()
	defer done()

	fmt.Fprintf(i.out, "\nStarting %s\n", label)
	fmt.Fprintln(i.out, strings.Repeat("-", 50))

	res, run, err := fn(ctx)

	fmt.Fprintln(i.out, strings.Repeat("-", 50))

	if err != nil {
		fmt.Fprintf(i.out, "Task failed: %v\n", err)

		if run != nil && run.Failure != nil {
			return WriteJSON(i.out, run.Failure)
		}

		return nil
	}

	fmt.Fprintf(i.out, "Task completed in %d steps (%s)\n\n", len(run.Steps), run.StopReason)

	return WriteJSON(i.out, res)
}

func (i *Interface) printBanner() {
	fmt.Fprintln(i.out, `
==================================================
  Afterversed navigator
  Guided browsing of UK bereavement services
==================================================`)
}

func (i *Interface) printHelp() {
	fmt.Fprintln(i.out, `
Available commands:
  register <location> [postcode]  - Find the register office and its booking form
  funeral <location>              - Build a funeral price catalogue near a location
  notify                          - Collect organisations to notify after a death
  run <task.yaml>                 - Run a task loaded from a YAML file
  release                         - Close the browser
  help, h                         - Show this help message
  exit, quit, q                   - Exit the application

Ctrl+C stops the running task and exits.`)
}
