package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"imgsim/internal/logging"
	"imgsim/internal/metrics"
	"imgsim/internal/services"
)

// Outcome is the recorded result of running one stage for one collection.
type Outcome struct {
	Stage      Stage
	Kind       services.Outcome
	CacheHit   bool
	Reason     string
	Result     Result
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Run executes handler for coll and logs one summary line: completed,
// skipped (cache hit), skipped (precondition), or failed.
func Run(ctx context.Context, logger *slog.Logger, handler Handler, coll *Collection) Outcome {
	stage := handler.Name()
	stageCtx := services.WithStage(ctx, string(stage))
	stageLogger := logging.WithContext(stageCtx, logger)

	outcome := Outcome{Stage: stage, StartedAt: time.Now()}
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := ctx.Err(); err != nil {
		return finish(stageLogger, outcome, Result{}, services.Wrap(services.ErrCancelled, string(stage), "start", "run cancelled", err))
	}
	result, err := handler.Execute(stageCtx, coll)
	return finish(stageLogger, outcome, result, err)
}

func finish(logger *slog.Logger, outcome Outcome, result Result, err error) Outcome {
	outcome.FinishedAt = time.Now()
	outcome.Result = result
	outcome.Err = err
	outcome.Kind = services.FailureKind(err)
	outcome.CacheHit = err == nil && result.CacheHit
	duration := outcome.FinishedAt.Sub(outcome.StartedAt)
	stage := string(outcome.Stage)

	switch {
	case err == nil && result.CacheHit:
		metrics.RecordCacheHit(stage)
		logger.Info("stage skipped (cache hit)",
			logging.String(logging.FieldEventType, "stage_cache_hit"),
			logging.String("detail", result.summary()),
		)
	case err == nil:
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.String("detail", result.summary()),
			logging.Duration("duration", duration),
		)
	default:
		_, message := services.Details(err)
		outcome.Reason = strings.TrimSpace(message)
		if outcome.Kind == services.OutcomeSkipped {
			logging.WarnWithContext(context.Background(), logger, "stage skipped", "stage_skip",
				logging.String("reason", outcome.Reason),
				logging.String(logging.FieldErrorHint, skipHint(err)),
			)
		} else {
			logging.ErrorWithContext(context.Background(), logger, "stage failed", "stage_failure",
				logging.String("reason", outcome.Reason),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, failureHint(err)),
			)
		}
	}
	metrics.RecordStageOutcome(stage, string(outcome.Kind))
	return outcome
}

func skipHint(err error) string {
	switch {
	case errors.Is(err, services.ErrCancelled):
		return "rerun to resume; completed stages are cached"
	case errors.Is(err, services.ErrConfiguration):
		return "check the collection directory and input root layout"
	default:
		return "provide the missing input file and rerun this stage"
	}
}

func failureHint(err error) string {
	if errors.Is(err, services.ErrExternalTool) {
		return "inspect engine output with --log-level debug"
	}
	return "check logs for details"
}
