package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"imgsim/internal/config"
	"imgsim/internal/logging"
	"imgsim/internal/metrics"
	"imgsim/internal/services"
)

// Operation names one of the four engine executables.
type Operation string

const (
	OpExtract  Operation = "extract"
	OpIndex    Operation = "index"
	OpMatch    Operation = "match"
	OpRetrieve Operation = "retrieve"
)

// Operations lists every engine operation in pipeline order.
var Operations = []Operation{OpExtract, OpIndex, OpRetrieve, OpMatch}

// Result is the outcome of one engine process.
type Result struct {
	Operation  Operation
	Output     string
	ExitStatus int
	Duration   time.Duration
}

// OK reports whether the process exited with status zero.
func (r Result) OK() bool { return r.ExitStatus == 0 }

// Executor abstracts process execution for testability. The returned error
// is reserved for processes that could not be started or were interrupted;
// a process that ran and exited non-zero returns its status and a nil error.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) (int, error)
}

// Runner is the contract pipeline stages depend on.
type Runner interface {
	Run(ctx context.Context, op Operation, args []string) (Result, error)
	Settings() Settings
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger used for engine output at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client runs engine operations.
type Client struct {
	binaries map[Operation]string
	settings Settings
	timeout  time.Duration
	exec     Executor
	breaker  *gobreaker.CircuitBreaker[Result]
	logger   *slog.Logger
}

// New constructs a client from the engine configuration.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("engine config required")
	}
	binaries := make(map[Operation]string, len(Operations))
	for _, op := range Operations {
		binary := cfg.EngineBinary(string(op))
		if binary == "" {
			return nil, fmt.Errorf("engine %s binary required", op)
		}
		binaries[op] = binary
	}

	client := &Client{
		binaries: binaries,
		settings: Settings{
			Mode:       cfg.Engine.Mode,
			ParamsFile: cfg.Engine.ParamsFile,
			MatchType:  cfg.Engine.MatchType,
			OneWay:     cfg.Engine.OneWay,
		},
		timeout: time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "engine")

	threshold := uint32(max(cfg.Engine.BreakerFailures, 1))
	client.breaker = gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "engine",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			client.logger.Warn("engine circuit state changed",
				logging.String("from", from.String()),
				logging.String("to", to.String()),
				logging.String(logging.FieldEventType, "engine_breaker"),
			)
		},
	})
	return client, nil
}

// Settings returns the flags applied to every invocation.
func (c *Client) Settings() Settings { return c.settings }

// Binary returns the executable configured for op.
func (c *Client) Binary(op Operation) string { return c.binaries[op] }

// Run executes one engine operation and blocks until the process exits.
// A non-zero exit status is reported in the result, not as an error. Errors
// mean the process could not be launched, timed out, was cancelled, or the
// breaker is open.
func (c *Client) Run(ctx context.Context, op Operation, args []string) (Result, error) {
	binary, ok := c.binaries[op]
	if !ok {
		return Result{}, services.Wrap(services.ErrConfiguration, string(op), "resolve binary", "unknown engine operation", nil)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Debug("engine invocation",
		logging.String(logging.FieldOperation, string(op)),
		logging.String("binary", binary),
		logging.String("args", strings.Join(args, " ")),
	)

	start := time.Now()
	result, err := c.breaker.Execute(func() (Result, error) {
		var (
			mu  sync.Mutex
			out strings.Builder
		)
		status, err := c.exec.Run(runCtx, binary, args, func(line string) {
			mu.Lock()
			out.WriteString(line)
			out.WriteByte('\n')
			mu.Unlock()
			logger.Debug(line, logging.String(logging.FieldOperation, string(op)))
		})
		mu.Lock()
		output := out.String()
		mu.Unlock()
		return Result{Operation: op, Output: output, ExitStatus: status}, err
	})
	duration := time.Since(start)
	result.Operation = op
	result.Duration = duration

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordEngineInvocation(string(op), metrics.EngineBreakerOpen, 0)
		return result, services.Wrap(services.ErrExternalTool, string(op), "run", "engine circuit open after repeated launch failures", err)
	case err != nil && ctx.Err() != nil:
		metrics.RecordEngineInvocation(string(op), metrics.EngineCancelled, duration)
		return result, services.Wrap(services.ErrCancelled, string(op), "run", "interrupted", ctx.Err())
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		metrics.RecordEngineInvocation(string(op), metrics.EngineTimeout, duration)
		return result, services.Wrap(services.ErrExternalTool, string(op), "run", fmt.Sprintf("timed out after %s", c.timeout), err)
	case err != nil:
		metrics.RecordEngineInvocation(string(op), metrics.EngineLaunchError, duration)
		return result, services.Wrap(services.ErrExternalTool, string(op), "launch", binary, err)
	case !result.OK():
		metrics.RecordEngineInvocation(string(op), metrics.EngineNonZeroExit, duration)
	default:
		metrics.RecordEngineInvocation(string(op), metrics.EngineOK, duration)
	}
	return result, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if scanErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return -1, fmt.Errorf("scan output: %w", scanErr)
	}

	err = cmd.Wait()
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("wait command: %w", err)
	}
	return 0, nil
}
