package flux

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/log"
)

const healthCheckTimeout = 5 * time.Second

// Request describes a single image generation.
type Request struct {
	Prompt string
	Width  int
	Height int
	Seed   int64
	Action string
}

type Client interface {
	// Generate renders an image and returns the raw PNG bytes.
	Generate(ctx context.Context, req Request) ([]byte, error)
	// Check probes the image server's health endpoint.
	Check(ctx context.Context) error
}

type client struct {
	httpClient      *http.Client
	healthClient    *http.Client
	url             string
	conf            *config.FluxConfig
	statusReporter  status.Reporter
	metricsReporter metrics.Reporter
	log             log.Logger
}

func NewClient(conf *config.FluxConfig, statusReporter status.Reporter, metricsReporter metrics.Reporter, log log.Logger) Client {
	return &client{
		httpClient:      &http.Client{Timeout: time.Duration(conf.Timeout) * time.Second},
		healthClient:    &http.Client{Timeout: healthCheckTimeout},
		url:             strings.TrimSuffix(conf.Url, "/"),
		conf:            conf,
		statusReporter:  statusReporter,
		metricsReporter: metricsReporter,
		log:             log.WithPrefix("flux"),
	}
}

func (c *client) Generate(ctx context.Context, req Request) ([]byte, error) {
	form := url.Values{
		"prompt":         {req.Prompt},
		"steps":          {strconv.Itoa(c.conf.Steps)},
		"guidance_scale": {strconv.FormatFloat(c.conf.Guidance, 'g', -1, 64)},
		"width":          {strconv.Itoa(req.Width)},
		"height":         {strconv.Itoa(req.Height)},
		"seed":           {strconv.FormatInt(req.Seed, 10)},
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/flux", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Errorf("image generation failed: %s", err)
		c.statusReporter.ReportError(status.Flux, "image generation failed")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		c.log.Errorf("image server error: HTTP %d", resp.StatusCode)
		c.statusReporter.ReportError(status.Flux, "image generation failed")
		return nil, fmt.Errorf("image server returned HTTP %d", resp.StatusCode)
	}
	imageBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		c.statusReporter.ReportError(status.Flux, "image generation failed")
		return nil, err
	}
	duration := time.Since(start)
	if c.metricsReporter != nil {
		c.metricsReporter.MeasureImageGeneration(req.Action, duration)
	}
	c.statusReporter.ReportOk(status.Flux, "image generation succeeded")
	c.log.Debugf("image generated in %.2fs (prompt: '%s', %dx%d, seed: %d)",
		duration.Seconds(), req.Prompt, req.Width, req.Height, req.Seed)
	return imageBytes, nil
}

func (c *client) Check(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.healthClient.Do(httpReq)
	if err != nil {
		c.statusReporter.ReportError(status.Flux, "health check failed")
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		c.statusReporter.ReportError(status.Flux, "health check failed")
		return fmt.Errorf("image server returned HTTP %d", resp.StatusCode)
	}
	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		c.statusReporter.ReportError(status.Flux, "health check failed")
		return err
	}
	if health.Status != "ok" {
		c.statusReporter.ReportError(status.Flux, "health check failed")
		return fmt.Errorf("image server reported status '%s'", health.Status)
	}
	c.statusReporter.ReportOk(status.Flux, "health check succeeded")
	return nil
}
