package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"polaroid/internal/app"
	"polaroid/internal/app/gateway"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/errs"
	"polaroid/internal/utils/logger"
	"polaroid/internal/utils/report"
)

const (
	defaultPollInterval    = 3 * time.Second
	defaultPollTimeout     = 5 * time.Minute
	maxConsecutiveFailures = 3
)

// Poller drives status checks for one task at a fixed cadence until a
// terminal state. Up to 3 consecutive failed checks are absorbed; the counter
// resets on any successful check.
type Poller struct {
	gateway     app.Gateway
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	sleep       func(ctx context.Context, d time.Duration) error
}

func CreatePoller(gw app.Gateway, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	return &Poller{
		gateway:     gw,
		interval:    interval,
		timeout:     timeout,
		maxFailures: maxConsecutiveFailures,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Wait blocks until the task reaches a terminal state, the overall timeout
// expires, or the context is cancelled. The task is mutated in place; every
// successful non-error check reports progress through onProgress.
func (p *Poller) Wait(ctx context.Context, task *models.Task, onProgress func(int)) error {
	const funcName = "Poller.Wait"
	logger.Debug("polling task status",
		zap.String("function", funcName),
		zap.String("task_id", task.TaskID),
	)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	failures := 0
	for {
		result, err := p.gateway.Status(ctx, task.TaskID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return p.contextError(ctxErr)
			}

			failures++
			logger.Warn("status check failed",
				zap.String("function", funcName),
				zap.String("task_id", task.TaskID),
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
			if failures >= p.maxFailures {
				return fmt.Errorf("%w: %d consecutive status checks failed: %v", errs.ErrPollingFailed, failures, err)
			}
		} else {
			failures = 0
			p.apply(task, result)

			switch task.Status {
			case models.StatusCompleted:
				task.Progress = 100
				if onProgress != nil {
					onProgress(100)
				}
				return nil
			case models.StatusError:
				// Progress freezes at its last known value.
				return fmt.Errorf("%w: %s", errs.ErrRemoteTask, result.Msg)
			default:
				if onProgress != nil {
					onProgress(report.ToUserProgress(task.Status, task.Progress))
				}
			}
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			return p.contextError(err)
		}
	}
}

// apply folds a status response into the task, keeping progress monotonically
// non-decreasing while the task is running.
func (p *Poller) apply(task *models.Task, result *gateway.StatusResult) {
	task.Status = result.Status
	if result.Progress == gateway.ProgressUnreported {
		return
	}
	if task.Status == models.StatusRunning && result.Progress < task.Progress {
		return
	}
	task.Progress = result.Progress
}

func (p *Poller) contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no terminal status within %s", errs.ErrPollingFailed, p.timeout)
	}
	// Cancellation is cooperative teardown, not a polling failure.
	return err
}
