package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"polaroid/internal/app/gateway"
	mock_app "polaroid/internal/app/mocks"
	"polaroid/internal/app/models"
	"polaroid/internal/utils/errs"
	"polaroid/internal/utils/logger"
)

func TestMain(m *testing.M) {
	logger.InitTestLogger()
	m.Run()
}

func testImageBytes(t *testing.T) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	return buf.Bytes()
}

func TestTaskUsecase_ProcessImage_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	mockGateway.EXPECT().
		Upload(gomock.Any(), "photo.png", gomock.Any()).
		Return("abc123", nil)
	mockGateway.EXPECT().
		Run(gomock.Any(), "abc123").
		Return(&gateway.RunResult{TaskID: "t-1"}, nil)
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
	mockGateway.EXPECT().
		Outputs(gomock.Any(), "t-1").
		Return([]gateway.OutputItem{
			{FileURL: "https://cdn.example.com/result.png", FileType: "png"},
		}, nil)

	saved := make(chan string, 1)
	mockRepo.EXPECT().
		SaveImage(gomock.Any(), "https://cdn.example.com/result.png").
		DoAndReturn(func(ctx context.Context, imageURL string) (int, error) {
			saved <- imageURL
			return 1, nil
		})

	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	progress := []int{}
	resultURL, err := uc.ProcessImage(context.Background(), "photo.png", testImageBytes(t), func(p int) {
		progress = append(progress, p)
	})

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/result.png", resultURL)
	assert.Equal(t, []int{50, 50, 100}, progress)

	select {
	case imageURL := <-saved:
		assert.Equal(t, "https://cdn.example.com/result.png", imageURL)
	case <-time.After(time.Second):
		t.Fatal("result was not recorded to the gallery")
	}
}

func TestTaskUsecase_ProcessImage_GalleryFailureDoesNotFailTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	mockGateway.EXPECT().
		Upload(gomock.Any(), "photo.png", gomock.Any()).
		Return("abc123", nil)
	mockGateway.EXPECT().
		Run(gomock.Any(), "abc123").
		Return(&gateway.RunResult{TaskID: "t-1"}, nil)
	mockGateway.EXPECT().
		Status(gomock.Any(), "t-1").
		Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 100}, nil)
	mockGateway.EXPECT().
		Outputs(gomock.Any(), "t-1").
		Return([]gateway.OutputItem{
			{FileURL: "https://cdn.example.com/result.png", FileType: "png"},
		}, nil)

	saved := make(chan struct{}, 1)
	mockRepo.EXPECT().
		SaveImage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, imageURL string) (int, error) {
			saved <- struct{}{}
			return 0, errors.New("disk full")
		})

	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	resultURL, err := uc.ProcessImage(context.Background(), "photo.png", testImageBytes(t), nil)

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/result.png", resultURL)

	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatal("gallery save was never attempted")
	}
}

func TestTaskUsecase_ProcessImage_RemoteFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	mockGateway.EXPECT().
		Upload(gomock.Any(), "photo.png", gomock.Any()).
		Return("abc123", nil)
	mockGateway.EXPECT().
		Run(gomock.Any(), "abc123").
		Return(&gateway.RunResult{TaskID: "t-1"}, nil)
	mockGateway.EXPECT().
		Status(gomock.Any(), "t-1").
		Return(&gateway.StatusResult{
			Status:   models.StatusError,
			Progress: gateway.ProgressUnreported,
		}, nil)

	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	resultURL, err := uc.ProcessImage(context.Background(), "photo.png", testImageBytes(t), nil)

	assert.ErrorIs(t, err, errs.ErrRemoteTask)
	assert.Contains(t, err.Error(), "Try a different picture")
	assert.Empty(t, resultURL)
}

func TestTaskUsecase_ProcessImage_NoImageOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	mockGateway.EXPECT().
		Upload(gomock.Any(), "photo.png", gomock.Any()).
		Return("abc123", nil)
	mockGateway.EXPECT().
		Run(gomock.Any(), "abc123").
		Return(&gateway.RunResult{TaskID: "t-1"}, nil)
	mockGateway.EXPECT().
		Status(gomock.Any(), "t-1").
		Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 100}, nil)
	mockGateway.EXPECT().
		Outputs(gomock.Any(), "t-1").
		Return([]gateway.OutputItem{
			{FileURL: "https://cdn.example.com/result.mp4", FileType: "mp4"},
		}, nil)

	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	resultURL, err := uc.ProcessImage(context.Background(), "photo.png", testImageBytes(t), nil)

	assert.ErrorIs(t, err, errs.ErrNoResult)
	assert.Empty(t, resultURL)
}

func TestTaskUsecase_ProcessImage_BadInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	tests := []struct {
		name          string
		data          []byte
		expectedError error
	}{
		{
			name:          "EmptyData",
			data:          []byte{},
			expectedError: errs.ErrEmptyImage,
		},
		{
			name:          "NotAnImage",
			data:          []byte("not image bytes"),
			expectedError: errs.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

			resultURL, err := uc.ProcessImage(context.Background(), "photo.png", tt.data, nil)

			assert.ErrorIs(t, err, tt.expectedError)
			assert.Empty(t, resultURL)
		})
	}
}

func TestTaskUsecase_ProcessImage_UploadFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	mockGateway.EXPECT().
		Upload(gomock.Any(), "photo.png", gomock.Any()).
		Return("", errs.ErrUploadFailed)

	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	resultURL, err := uc.ProcessImage(context.Background(), "photo.png", testImageBytes(t), nil)

	assert.ErrorIs(t, err, errs.ErrUploadFailed)
	assert.Empty(t, resultURL)
}

func TestTaskUsecase_UploadImage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name          string
		mockSetup     func(*mock_app.MockGateway)
		expectedID    string
		expectedError error
	}{
		{
			name: "Success",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Upload(gomock.Any(), "photo.png", []byte("data")).
					Return("abc123", nil)
			},
			expectedID:    "abc123",
			expectedError: nil,
		},
		{
			name: "GatewayError",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Upload(gomock.Any(), "photo.png", []byte("data")).
					Return("", errs.ErrUploadFailed)
			},
			expectedID:    "",
			expectedError: errs.ErrUploadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGateway := mock_app.NewMockGateway(ctrl)
			mockRepo := mock_app.NewMockGalleryRepository(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockGateway)
			}

			uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))
			fileID, err := uc.UploadImage(context.Background(), "photo.png", []byte("data"))

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedID, fileID)
			}
		})
	}
}

func TestTaskUsecase_GenerateImage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name           string
		imageID        string
		mockSetup      func(*mock_app.MockGateway)
		expectedTaskID string
		expectedError  error
	}{
		{
			name:    "Success",
			imageID: "abc123",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Run(gomock.Any(), "abc123").
					Return(&gateway.RunResult{TaskID: "t-1"}, nil)
			},
			expectedTaskID: "t-1",
			expectedError:  nil,
		},
		{
			name:          "EmptyImageID",
			imageID:       "",
			expectedError: errs.ErrInvalidRequest,
		},
		{
			name:    "GatewayError",
			imageID: "abc123",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Run(gomock.Any(), "abc123").
					Return(nil, errs.ErrGenerationFailed)
			},
			expectedError: errs.ErrGenerationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGateway := mock_app.NewMockGateway(ctrl)
			mockRepo := mock_app.NewMockGalleryRepository(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockGateway)
			}

			uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))
			taskID, err := uc.GenerateImage(context.Background(), tt.imageID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedTaskID, taskID)
			}
		})
	}
}

func TestTaskUsecase_CheckStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name          string
		taskID        string
		mockSetup     func(*mock_app.MockGateway)
		expectedTask  *models.Task
		expectedError error
	}{
		{
			name:   "Running",
			taskID: "t-1",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Status(gomock.Any(), "t-1").
					Return(&gateway.StatusResult{Status: models.StatusRunning, Progress: 50}, nil)
			},
			expectedTask: &models.Task{TaskID: "t-1", Status: models.StatusRunning, Progress: 50},
		},
		{
			name:   "CompletedAlwaysFullProgress",
			taskID: "t-1",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Status(gomock.Any(), "t-1").
					Return(&gateway.StatusResult{Status: models.StatusCompleted, Progress: 42}, nil)
			},
			expectedTask: &models.Task{TaskID: "t-1", Status: models.StatusCompleted, Progress: 100},
		},
		{
			name:          "EmptyTaskID",
			taskID:        "",
			expectedError: errs.ErrInvalidRequest,
		},
		{
			name:   "GatewayError",
			taskID: "t-1",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Status(gomock.Any(), "t-1").
					Return(nil, errors.New("connection reset"))
			},
			expectedError: errs.ErrPollingFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGateway := mock_app.NewMockGateway(ctrl)
			mockRepo := mock_app.NewMockGalleryRepository(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockGateway)
			}

			uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))
			task, err := uc.CheckStatus(context.Background(), tt.taskID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedTask, task)
			}
		})
	}
}

func TestTaskUsecase_GetTaskResult(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tests := []struct {
		name           string
		taskID         string
		mockSetup      func(*mock_app.MockGateway)
		expectedImages []string
		expectedError  error
	}{
		{
			name:   "FiltersNonImages",
			taskID: "t-1",
			mockSetup: func(mockGateway *mock_app.MockGateway) {
				mockGateway.EXPECT().
					Outputs(gomock.Any(), "t-1").
					Return([]gateway.OutputItem{
						{FileURL: "https://cdn.example.com/a.png", FileType: "png"},
						{FileURL: "https://cdn.example.com/b.mp4", FileType: "mp4"},
						{FileURL: "https://cdn.example.com/c.jpg", FileType: "jpg"},
					}, nil)
			},
			expectedImages: []string{
				"https://cdn.example.com/a.png",
				"https://cdn.example.com/c.jpg",
			},
		},
		{
			name:          "EmptyTaskID",
			taskID:        "",
			expectedError: errs.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGateway := mock_app.NewMockGateway(ctrl)
			mockRepo := mock_app.NewMockGalleryRepository(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(mockGateway)
			}

			uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))
			images, err := uc.GetTaskResult(context.Background(), tt.taskID)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedImages, images)
			}
		})
	}
}

func TestTaskUsecase_BeginSession_NewSessionCancelsPrevious(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)
	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	ctxA, doneA := uc.beginSession(context.Background())
	defer doneA()

	ctxB, doneB := uc.beginSession(context.Background())
	defer doneB()

	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	assert.NoError(t, ctxB.Err())
}

func TestTaskUsecase_BeginSession_StaleCleanupKeepsNewerSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)
	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))

	// Session A is still unwinding when session B starts; A's deferred
	// cleanup fires afterwards and must not clear B's cancel handle.
	_, doneA := uc.beginSession(context.Background())
	ctxB, doneB := uc.beginSession(context.Background())
	defer doneB()

	doneA()

	ctxC, doneC := uc.beginSession(context.Background())
	defer doneC()

	assert.ErrorIs(t, ctxB.Err(), context.Canceled)
	assert.NoError(t, ctxC.Err())
}

func TestTaskUsecase_PingGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGateway := mock_app.NewMockGateway(ctrl)
	mockRepo := mock_app.NewMockGalleryRepository(ctrl)

	mockGateway.EXPECT().
		Ping(gomock.Any()).
		Return(json.RawMessage(`{"code":0}`), nil)

	uc := CreateTaskUsecase(mockGateway, mockRepo, createTestPoller(mockGateway))
	data, err := uc.PingGateway(context.Background())

	assert.NoError(t, err)
	assert.JSONEq(t, `{"code":0}`, string(data))
}
