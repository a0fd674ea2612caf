package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

const driveBaseURL = "https://drive.google.com"

// DriveClient downloads files shared on Google Drive through the direct
// download endpoint.
type DriveClient struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	BaseURL    string
}

func NewDriveClient(logger *zap.Logger) *DriveClient {
	return &DriveClient{
		logger:  logger,
		BaseURL: driveBaseURL,
		HTTPClient: &http.Client{
			// Interview recordings can be large.
			Timeout: 10 * time.Minute,
		},
	}
}

// Download fetches the file with the given drive identifier into dest.
// The caller checks for dest existence afterwards; a missing file after a
// nil error still counts as a failed download.
func (c *DriveClient) Download(ctx context.Context, fileID, dest string) error {
	q := url.Values{}
	q.Set("export", "download")
	q.Set("id", fileID)
	q.Set("confirm", "t")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/uc", nil)
	if err != nil {
		return err
	}
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("downloading video", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}

	return out.Close()
}
