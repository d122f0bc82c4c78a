package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/internal/utils"
	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/store"
)

const descriptionTtl = 1 * time.Hour

var supportedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// IsSupportedImage tells whether an attachment filename looks like an
// image the analyzer can handle.
func IsSupportedImage(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Analyzer sends image attachments to the analysis service and keeps
// the returned descriptions around for conversation context.
type Analyzer struct {
	httpClient     *http.Client
	conf           *config.VisionConfig
	history        store.External
	statusReporter status.Reporter
	log            log.Logger
}

func NewAnalyzer(conf *config.VisionConfig, history store.External, statusReporter status.Reporter, log log.Logger) *Analyzer {
	return &Analyzer{
		httpClient:     &http.Client{Timeout: time.Duration(conf.Timeout) * time.Second},
		conf:           conf,
		history:        history,
		statusReporter: statusReporter,
		log:            log.WithPrefix("vision"),
	}
}

// Enabled reports whether an analysis endpoint is configured.
func (a *Analyzer) Enabled() bool {
	return a.conf.Url != ""
}

// Describe downloads the attachment and returns its description.
// The result is remembered per message so history assembly can
// reattach it later.
func (a *Analyzer) Describe(ctx context.Context, messageId string, attachmentUrl string) (string, error) {
	imageData, err := a.download(ctx, attachmentUrl)
	if err != nil {
		a.log.Errorf("failed to download attachment: %s", err)
		return "", err
	}
	description, err := a.analyze(ctx, imageData)
	if err != nil {
		a.log.Errorf("failed to analyze image: %s", err)
		a.statusReporter.ReportError(status.Vision, "image analysis failed")
		return "", err
	}
	a.statusReporter.ReportOk(status.Vision, "image analysis succeeded")
	if err := a.history.Set(ctx, historyKey(messageId), []byte(description), descriptionTtl); err != nil {
		a.log.Errorf("failed to store image description: %s", err)
	}
	return description, nil
}

// Recall returns the stored description for a message, if any.
func (a *Analyzer) Recall(ctx context.Context, messageId string) (string, bool) {
	description, err := a.history.Get(ctx, historyKey(messageId))
	if err != nil || len(description) == 0 {
		return "", false
	}
	return string(description), true
}

func (a *Analyzer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (a *Analyzer) analyze(ctx context.Context, imageData []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return "", err
	}
	if _, err = part.Write(imageData); err != nil {
		return "", err
	}
	if err = writer.Close(); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.conf.Url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image analysis returned HTTP %d", resp.StatusCode)
	}
	var result struct {
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Description == "" {
		return "No description available", nil
	}
	return result.Description, nil
}

func historyKey(messageId string) string {
	return "vision:" + utils.FastHashHex([]byte(messageId))
}
