package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"
	"polaroid/internal/app/models"
	"polaroid/internal/config"
	"polaroid/internal/utils/errs"
	"polaroid/internal/utils/logger"
)

const (
	uploadPath  = "/task/openapi/upload"
	runPath     = "/task/openapi/ai-app/run"
	statusPath  = "/task/openapi/status"
	outputsPath = "/task/openapi/outputs"
	pingPath    = "/task/openapi/ping"

	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
)

// ProgressUnreported marks status responses that carry no progress value;
// the caller keeps its last known progress.
const ProgressUnreported = -1

type RunResult struct {
	TaskID     string `json:"taskId"`
	ClientID   string `json:"clientId"`
	NetWssURL  string `json:"netWssUrl"`
	TaskStatus string `json:"taskStatus"`
	PromptTips string `json:"promptTips,omitempty"`
}

type StatusResult struct {
	Status   models.TaskStatus
	Progress int
	Msg      string
}

type OutputItem struct {
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType"`
	TaskCostTime string `json:"taskCostTime"`
	NodeID       string `json:"nodeId"`
}

// envelope is the gateway's uniform response wrapper. Data is kept raw
// because its shape differs per endpoint (and per response for status).
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	webappID    string
	nodeID      string
	maxAttempts int
	retryDelay  time.Duration
}

func CreateClient(cfg *config.Config) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     cfg.APIBaseURL,
		apiKey:      cfg.APIKey,
		webappID:    cfg.WebappID,
		nodeID:      cfg.NodeID,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
	}
}

// do performs a single request and decodes the gateway envelope. A non-2xx
// response or transport failure is reported as retryable=true; a gateway
// business error (code != 0) is terminal.
func (c *Client) do(req *http.Request) (*envelope, bool, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, true, fmt.Errorf("gateway returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	env := &envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, true, fmt.Errorf("decode gateway response: %w", err)
	}

	if env.Code != 0 {
		return nil, false, fmt.Errorf("gateway error %d: %s", env.Code, env.Msg)
	}

	return env, false, nil
}

// doWithRetry retries transport and HTTP failures with a fixed delay.
// Business errors are never retried.
func (c *Client) doWithRetry(ctx context.Context, build func() (*http.Request, error)) (*envelope, error) {
	const funcName = "Client.doWithRetry"

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		env, retryable, err := c.do(req)
		if err == nil {
			return env, nil
		}
		if !retryable {
			return nil, err
		}

		lastErr = err
		logger.Warn("gateway request failed",
			zap.String("function", funcName),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.Error(err),
		)

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}

	return nil, lastErr
}

// Upload sends the image as a multipart form and returns the file name the
// gateway assigned to it.
func (c *Client) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	const funcName = "Client.Upload"
	logger.Debug("uploading image",
		zap.String("function", funcName),
		zap.Int("size_bytes", len(data)),
	)

	if len(data) == 0 {
		return "", errs.ErrEmptyImage
	}

	env, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			return nil, fmt.Errorf("create multipart: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("write multipart: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("close multipart: %w", err)
		}

		url := fmt.Sprintf("%s%s?apiKey=%s", c.baseURL, uploadPath, c.apiKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUploadFailed, err)
	}

	result := struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}{}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return "", fmt.Errorf("%w: decode upload data: %v", errs.ErrUploadFailed, err)
	}
	if result.FileName == "" {
		return "", fmt.Errorf("%w: gateway returned no file name", errs.ErrUploadFailed)
	}

	logger.Info("image uploaded",
		zap.String("function", funcName),
		zap.String("file_name", result.FileName),
	)

	return result.FileName, nil
}

// Run submits a generation task for an uploaded image. The webapp and node
// identifiers select the transformation graph and its image input slot; they
// are static configuration.
func (c *Client) Run(ctx context.Context, fileName string) (*RunResult, error) {
	const funcName = "Client.Run"
	logger.Debug("starting generation task",
		zap.String("function", funcName),
		zap.String("file_name", fileName),
	)

	payload := map[string]any{
		"webappId": c.webappID,
		"apiKey":   c.apiKey,
		"nodeInfoList": []map[string]string{{
			"nodeId":     c.nodeID,
			"fieldName":  "image",
			"fieldValue": fileName,
		}},
	}

	env, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.jsonRequest(ctx, runPath, payload)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrGenerationFailed, err)
	}

	result := &RunResult{}
	if err := json.Unmarshal(env.Data, result); err != nil {
		return nil, fmt.Errorf("%w: decode run data: %v", errs.ErrGenerationFailed, err)
	}
	if result.TaskID == "" {
		return nil, fmt.Errorf("%w: gateway returned no task id", errs.ErrGenerationFailed)
	}

	logger.Info("generation task started",
		zap.String("function", funcName),
		zap.String("task_id", result.TaskID),
	)

	return result, nil
}

// Status fetches the current task state. A single attempt only: the poller
// owns the tolerance for failed checks.
func (c *Client) Status(ctx context.Context, taskID string) (*StatusResult, error) {
	req, err := c.jsonRequest(ctx, statusPath, map[string]string{
		"apiKey": c.apiKey,
		"taskId": taskID,
	})
	if err != nil {
		return nil, err
	}

	env, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	status, progress := resolveStatus(env.Data)
	return &StatusResult{Status: status, Progress: progress, Msg: env.Msg}, nil
}

// Outputs fetches the artifacts produced by a completed task.
func (c *Client) Outputs(ctx context.Context, taskID string) ([]OutputItem, error) {
	req, err := c.jsonRequest(ctx, outputsPath, map[string]string{
		"apiKey": c.apiKey,
		"taskId": taskID,
	})
	if err != nil {
		return nil, err
	}

	env, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var items []OutputItem
	if err := json.Unmarshal(env.Data, &items); err != nil {
		return nil, fmt.Errorf("decode outputs data: %w", err)
	}

	return items, nil
}

// Ping probes gateway connectivity for the debug endpoint.
func (c *Client) Ping(ctx context.Context) (json.RawMessage, error) {
	url := fmt.Sprintf("%s%s?apiKey=%s", c.baseURL, pingPath, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway ping: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ping response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway ping returned HTTP %d", resp.StatusCode)
	}

	return json.RawMessage(body), nil
}

func (c *Client) jsonRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// resolveStatus normalizes the status payload, which the gateway emits either
// as a bare string or as a {status, progress} object.
func resolveStatus(data json.RawMessage) (models.TaskStatus, int) {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		switch raw {
		case "SUCCESS", "COMPLETED":
			return models.StatusCompleted, 100
		case "RUNNING", "PENDING":
			return models.StatusRunning, 50
		case "FAILED", "ERROR":
			return models.StatusError, ProgressUnreported
		default:
			return models.TaskStatus(raw), 0
		}
	}

	obj := struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	}{}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Status != "" {
		return models.TaskStatus(obj.Status), obj.Progress
	}

	return models.StatusUnknown, 0
}
