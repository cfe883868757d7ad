package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/aegistudio/shaft"
	"github.com/aegistudio/shaft/serpent"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chaitin/modtrace"
)

var (
	request     modtrace.Request
	debugfsPath = "/sys/kernel/debug"
	logLevel    = "info"
)

const longUsage = `Enable function counting and timing via linux ftrace
for a single kernel module.

Start a trace with either --count or --callgraph, then stop
it later with --stop, which dumps the trace and the function
statistics into ftrace.log.N in the working directory.

  modtrace -g -m my_module
  ... exercise the module ...
  modtrace -s`

// runErr is the error returned by the request itself,
// before the injection nodes wrap it with their own names.
var runErr error

var execute = serpent.Executor(shaft.Module(
	shaft.Stack(func(
		next func(context.Context) error,
		rootCtx serpent.CommandContext,
	) error {
		ctx, cancel := context.WithCancel(rootCtx)
		defer cancel()
		return next(ctx)
	}),
	shaft.Invoke(func(
		ctx context.Context, options []modtrace.Option,
	) error {
		report, err := modtrace.Run(ctx, request, options...)
		if err != nil {
			runErr = err
			return err
		}
		if report != "" {
			fmt.Println(report)
		}
		return nil
	}),
	shaft.Provide(func(
		logger *zap.Logger,
	) ([]modtrace.Option, error) {
		return []modtrace.Option{
			modtrace.WithDebugFSPath(debugfsPath),
			modtrace.WithLogger(logger),
		}, nil
	}),
	shaft.Stack(func(next func(*zap.Logger) error) error {
		level, err := zapcore.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger := zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr), zap.NewAtomicLevelAt(level)))
		defer func() { _ = logger.Sync() }()
		return next(logger)
	}),
))

var rootCmd = &cobra.Command{
	Use:          "modtrace",
	Short:        "Trace a linux kernel module with ftrace",
	Long:         longUsage,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().NFlag() == 0 {
			return cmd.Help()
		}

		// Usage errors never reach the injected modules.
		if err := request.Validate(); err != nil {
			return err
		}
		runErr = nil
		if err := execute.RunE(cmd, args); err != nil {
			if runErr != nil {
				return runErr
			}
			return err
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(
		&request.Count, "count", "c", request.Count,
		"generate a count of functions called")
	flags.BoolVarP(
		&request.Callgraph, "callgraph", "g", request.Callgraph,
		"generate a function call graph (with timings)")
	flags.StringVarP(
		&request.Module, "module", "m", request.Module,
		"module name to trace")
	flags.BoolVarP(
		&request.Stop, "stop", "s", request.Stop,
		"stop the trace and dump the report to ftrace.log.N "+
			"in the working directory")
	flags.BoolVarP(
		&request.Reset, "reset", "r", request.Reset,
		"turn tracing off and restore the nop tracer")
	flags.StringVarP(
		&debugfsPath, "debugfs", "d", debugfsPath,
		"path to the debugfs directory")
	flags.StringVar(
		&logLevel, "log-level", logLevel,
		"setup the log level of the logger, "+
			"debug prints every control write")

	// Usage errors are reported on standard output.
	rootCmd.SetErr(os.Stdout)
}

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt)
	defer cancel()
	if err := serpent.ExecuteContext(ctx, rootCmd); err != nil {
		os.Exit(1)
	}
}
