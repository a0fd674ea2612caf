package transcribe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.assemblyai.com/v2"

	// Upload bodies are streamed in bounded chunks so a long recording
	// never has to fit in memory.
	uploadChunkSize = 5 * 1024 * 1024

	defaultPollInterval    = 2 * time.Second
	defaultMaxPollDuration = 10 * time.Minute

	statusCompleted = "completed"
	statusError     = "error"
)

var (
	// ErrTranscriptFailed means the service itself reported the job as
	// failed.
	ErrTranscriptFailed = errors.New("transcription service reported an error")
	// ErrPollTimeout means the job never reached a terminal state within
	// the allowed wait.
	ErrPollTimeout = errors.New("transcription polling timed out")
)

// Client talks to an AssemblyAI-compatible transcription API: upload the
// audio, submit a job, poll until terminal.
type Client struct {
	apiKey string
	logger *zap.Logger

	HTTPClient      *http.Client
	BaseURL         string
	PollInterval    time.Duration
	MaxPollDuration time.Duration
}

func New(apiKey string, logger *zap.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		BaseURL:         defaultBaseURL,
		PollInterval:    defaultPollInterval,
		MaxPollDuration: defaultMaxPollDuration,
	}
}

// TranscribeBatch transcribes every non-empty audio path and returns one
// transcript per input, index-aligned. A failed item maps to an empty
// string and never aborts the rest of the batch; empty input paths map to
// empty strings without contacting the service.
func (c *Client) TranscribeBatch(ctx context.Context, audioPaths []string) []string {
	transcripts := make([]string, 0, len(audioPaths))

	for i, path := range audioPaths {
		if path == "" {
			transcripts = append(transcripts, "")
			continue
		}

		text, err := c.Transcribe(ctx, path)
		if err != nil {
			c.logger.Warn("transcription failed",
				zap.Int("index", i),
				zap.String("audio_path", path),
				zap.Error(err),
			)
			text = ""
		}

		transcripts = append(transcripts, text)
	}

	return transcripts
}

// Transcribe runs the full upload/submit/poll cycle for a single file.
func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	uploadURL, err := c.upload(ctx, path)
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}

	id, err := c.submit(ctx, uploadURL)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	c.logger.Debug("transcript job submitted",
		zap.String("transcript_id", id),
		zap.String("audio_path", path),
	)

	text, err := c.poll(ctx, id)
	if err != nil {
		return "", fmt.Errorf("poll: %w", err)
	}

	return text, nil
}

func (c *Client) upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload",
		bufio.NewReaderSize(file, uploadChunkSize))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var result struct {
		UploadURL string `json:"upload_url"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}

	if result.UploadURL == "" {
		return "", errors.New("upload response contains no upload_url")
	}

	return result.UploadURL, nil
}

func (c *Client) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{"audio_url": audioURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &result); err != nil {
		return "", err
	}

	if result.ID == "" {
		return "", errors.New("transcript response contains no id")
	}

	return result.ID, nil
}

// poll checks the job status at a fixed interval until it reaches a
// terminal state or the maximum wait elapses. A timeout is reported as
// ErrPollTimeout, distinct from a service-reported ErrTranscriptFailed.
func (c *Client) poll(ctx context.Context, id string) (string, error) {
	deadline := time.Now().Add(c.MaxPollDuration)

	for {
		status, text, err := c.getTranscript(ctx, id)
		if err != nil {
			return "", err
		}

		switch status {
		case statusCompleted:
			return text, nil
		case statusError:
			return "", fmt.Errorf("transcript %s: %w", id, ErrTranscriptFailed)
		}

		c.logger.Debug("transcript not ready",
			zap.String("transcript_id", id),
			zap.String("status", status),
		)

		if time.Now().After(deadline) {
			return "", fmt.Errorf("transcript %s after %s: %w", id, c.MaxPollDuration, ErrPollTimeout)
		}

		if err := waitFor(ctx, c.PollInterval); err != nil {
			return "", err
		}
	}
}

func (c *Client) getTranscript(ctx context.Context, id string) (status, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/transcript/"+id, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", c.apiKey)

	var result struct {
		Status string `json:"status"`
		Text   string `json:"text"`
	}
	if err := c.do(req, &result); err != nil {
		return "", "", err
	}

	return result.Status, result.Text, nil
}

func (c *Client) do(req *http.Request, target any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

// waitFor sleeps for d unless the context is cancelled first.
func waitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
