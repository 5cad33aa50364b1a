package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.imp.dev/pkg"
)

var (
	help       bool
	configPath string
	logLevel   string
	logFile    string
	noCheck    bool
	legacy     bool
	dumpEnv    bool
	debugAST   bool
	snapDriver string
	snapDSN    string
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
	flag.BoolVar(&noCheck, "no-typecheck", false, "Skip the static type check")
	flag.BoolVar(&legacy, "legacy", false, "Use the historical AndCondition and Compare semantics")
	flag.BoolVar(&dumpEnv, "dump-env", false, "Print the final environment to stderr")
	flag.BoolVar(&debugAST, "debug-ast", false, "Print the decoded program as YAML and exit")
	flag.StringVar(&snapDriver, "snapshot-driver", "", "Store the final environment using this driver (sqlite3, mysql)")
	flag.StringVar(&snapDSN, "snapshot-dsn", "", "Data source name for the snapshot driver")
}

func main() {
	flag.Parse()

	if help || flag.NArg() != 1 {
		printHelp()
		if help {
			return
		}
		os.Exit(2)
	}

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logWriter := configureLogWriter(config.Log.File)
	slog.SetDefault(slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level: logLevelFromString(config.Log.Level),
	})))

	os.Exit(run(config, flag.Arg(0)))
}

func run(config imp.Config, filename string) int {
	ctx := context.Background()

	if debugAST {
		program, err := imp.LoadProgram(filename)
		if err == nil {
			err = imp.EncodeProgram(os.Stdout, program)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		return 0
	}

	interpreter := imp.NewInterpreter(config, os.Stdout, slog.Default())

	if config.Snapshot.Driver != "" {
		store, err := imp.OpenSnapshotStore(ctx, config.Snapshot.Driver, config.Snapshot.DSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer store.Close()
		interpreter.UseSnapshots(store)
	}

	env, err := interpreter.Run(ctx, filename)
	if dumpEnv && env != nil {
		fmt.Fprint(os.Stderr, env)
	}

	if err != nil {
		printError(err)
		return 1
	}

	return 0
}

func printError(err error) {
	var undefined *imp.UndefinedVariableError
	var mismatch *imp.TypeMismatchError

	switch {
	case errors.As(err, &undefined):
		fmt.Fprintln(os.Stderr, "Interpreter error:", undefined)
	case errors.As(err, &mismatch):
		fmt.Fprintln(os.Stderr, "Interpreter error:", mismatch)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
	}
}

func loadConfig() (imp.Config, error) {
	config := imp.DefaultConfig()
	if configPath != "" {
		var err error
		if config, err = imp.LoadConfig(configPath); err != nil {
			return config, err
		}
	}

	if logLevel != "" {
		config.Log.Level = logLevel
	}
	if logFile != "" {
		config.Log.File = logFile
	}
	if noCheck {
		config.Typecheck = false
	}
	if legacy {
		config.Legacy = true
	}
	if snapDriver != "" {
		config.Snapshot.Driver = snapDriver
	}
	if snapDSN != "" {
		config.Snapshot.DSN = snapDSN
	}

	return config, config.Validate()
}

func configureLogWriter(path string) io.Writer {
	if path == "" {
		return os.Stderr
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", path, err)
		return os.Stderr
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", path, err)
		return os.Stderr
	}

	return f
}

// logLevelFromString maps "none" and unknown names above every real level.
func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelError + 4
	}
}

func printHelp() {
	fmt.Fprint(os.Stderr, `Usage: imp [options] program.yaml

Runs a program given as a YAML encoded syntax tree.

Options:
  -config <path>            TOML configuration file.
  -no-typecheck             Skip the static type check.
  -legacy                   Use the historical AndCondition and Compare semantics.
  -dump-env                 Print the final environment to stderr.
  -debug-ast                Print the decoded program as YAML and exit.
  -snapshot-driver <name>   Store the final environment (sqlite3, mysql).
  -snapshot-dsn <dsn>       Data source name for the snapshot driver.
  -log-level <level>        debug, info, warn, error, none. Default is none.
  -log-file <path>          Log file path. Default is stderr.
  -help                     Display this help information and exit.
`)
}
