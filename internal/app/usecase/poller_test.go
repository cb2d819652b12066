package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"polaroid/internal/app/gateway"
	mock_app "polaroid/internal/app/mocks"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/errs"
)

func createTestPoller(gw *mock_app.MockGateway) *Poller {
	p := CreatePoller(gw, time.Millisecond, time.Second)
	p.sleep = func(context.Context, time.Duration) error {
		return nil
	}
	return p
}

func TestPoller_Wait_RunningThenCompleted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	gomock.InOrder(
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 100}, nil),
	)

	poller := createTestPoller(mockGateway)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	progress := []int{}
	err := poller.Wait(context.Background(), task, func(p int) {
		progress = append(progress, p)
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, []int{50, 50, 100}, progress)
}

func TestPoller_Wait_ProgressNeverDecreases(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	gomock.InOrder(
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 80}, nil),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 60}, nil),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 100}, nil),
	)

	poller := createTestPoller(mockGateway)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	progress := []int{}
	err := poller.Wait(context.Background(), task, func(p int) {
		progress = append(progress, p)
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{80, 80, 100}, progress)
}

func TestPoller_Wait_RemoteTaskFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	gomock.InOrder(
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{
				Status:   models.StatusError,
				Progress: gateway.ProgressUnreported,
				Msg:      "server side error",
			}, nil),
	)

	poller := createTestPoller(mockGateway)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	err := poller.Wait(context.Background(), task, nil)

	assert.ErrorIs(t, err, errs.ErrRemoteTask)
	assert.Contains(t, err.Error(), "server side error")
	assert.Equal(t, models.StatusError, task.Status)
	// Progress stays at its last reported value.
	assert.Equal(t, 50, task.Progress)
}

func TestPoller_Wait_RecoversAfterTwoFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	gomock.InOrder(
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(nil, errors.New("connection reset")),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(nil, errors.New("connection reset")),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 100}, nil),
	)

	poller := createTestPoller(mockGateway)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	err := poller.Wait(context.Background(), task, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
}

func TestPoller_Wait_ThreeConsecutiveFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockGateway.EXPECT().
		Status(gomock.Any(), "t-1").
		Return(nil, errors.New("connection reset")).
		Times(3)

	poller := createTestPoller(mockGateway)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	err := poller.Wait(context.Background(), task, nil)

	assert.ErrorIs(t, err, errs.ErrPollingFailed)
	assert.Contains(t, err.Error(), "3 consecutive")
}

func TestPoller_Wait_FailureCounterResets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Two failures, a successful check, two more failures: the counter must
	// reset in between, so polling survives and finishes.
	mockGateway := mock_app.NewMockGateway(ctrl)
	gomock.InOrder(
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(nil, errors.New("boom")),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(nil, errors.New("boom")),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(nil, errors.New("boom")),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(nil, errors.New("boom")),
		mockGateway.EXPECT().
			Status(gomock.Any(), "t-1").
			Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 100}, nil),
	)

	poller := createTestPoller(mockGateway)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	err := poller.Wait(context.Background(), task, nil)

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, task.Status)
}

func TestPoller_Wait_OverallTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockGateway.EXPECT().
		Status(gomock.Any(), "t-1").
		Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil)

	// The real sleep observes the expired deadline on the first tick.
	poller := CreatePoller(mockGateway, time.Millisecond, time.Nanosecond)
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	err := poller.Wait(context.Background(), task, nil)

	assert.ErrorIs(t, err, errs.ErrPollingFailed)
	assert.Contains(t, err.Error(), "no terminal status")
}

func TestPoller_Wait_CancellationIsNotAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockGateway.EXPECT().
		Status(gomock.Any(), "t-1").
		Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil)

	poller := createTestPoller(mockGateway)
	poller.sleep = func(context.Context, time.Duration) error {
		return context.Canceled
	}
	task := &models.Task{TaskID: "t-1", Status: models.StatusPending}

	err := poller.Wait(context.Background(), task, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, errs.ErrPollingFailed)
}

func TestCreatePoller_Defaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	poller := CreatePoller(mock_app.NewMockGateway(ctrl), 0, 0)

	assert.Equal(t, defaultPollInterval, poller.interval)
	assert.Equal(t, defaultPollTimeout, poller.timeout)
	assert.Equal(t, maxConsecutiveFailures, poller.maxFailures)
}
