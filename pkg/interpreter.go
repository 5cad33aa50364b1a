package imp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
)

type Interpreter struct {
	config Config
	out    io.Writer
	logger *slog.Logger
	store  *SnapshotStore
}

func NewInterpreter(config Config, out io.Writer, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Interpreter{
		config: config,
		out:    out,
		logger: logger,
	}
}

// UseSnapshots makes every successful run store its final environment.
func (i *Interpreter) UseSnapshots(store *SnapshotStore) {
	store.logger = i.logger
	i.store = store
}

func (i *Interpreter) Run(ctx context.Context, filename string) (*Environment, error) {
	program, err := LoadProgram(filename)
	if err != nil {
		return nil, err
	}

	return i.execute(ctx, filepath.Base(filename), program)
}

func (i *Interpreter) RunFromReader(ctx context.Context, reader io.Reader) (*Environment, error) {
	program, err := DecodeProgram(reader)
	if err != nil {
		return nil, err
	}

	return i.execute(ctx, "stdin", program)
}

func (i *Interpreter) Execute(ctx context.Context, program Command) (*Environment, error) {
	return i.execute(ctx, "program", program)
}

func (i *Interpreter) execute(ctx context.Context, runID string, program Command) (*Environment, error) {
	env := NewEnvironment()

	if i.config.Typecheck {
		if _, err := NewChecker(i.logger).Check(program); err != nil {
			return nil, err
		}
		i.logger.Debug("typecheck passed", slog.String("run", runID))
	}

	if i.config.FreshEnv {
		env = NewEnvironment()
	}

	evaluator := NewEvaluator(
		WithOutput(i.out),
		WithLogger(i.logger),
		WithLegacy(i.config.Legacy),
	)
	if err := evaluator.Exec(env, program); err != nil {
		return env, err
	}

	if i.store != nil {
		if err := i.store.Save(ctx, runID, env); err != nil {
			return env, fmt.Errorf("run %s: %w", runID, err)
		}
	}

	return env, nil
}
