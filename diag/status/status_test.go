package status

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sneezeparty/soupy/config"
	"github.com/stretchr/testify/assert"
)

func TestReporter(t *testing.T) {
	t.Run("initializing", func(t *testing.T) {
		reporter := NewNullReporter()
		srv := httptest.NewServer(reporter.HttpHandler())
		stat := readStatus(srv.URL)

		assert.Equal(t, Initializing, stat.Status)
		assert.Equal(t, Initializing, stat.Components[Discord].Status)
		assert.Equal(t, Initializing, stat.Components[Chat].Status)
		assert.Equal(t, Initializing, stat.Components[Flux].Status)
		assert.Equal(t, NA, stat.Components[Vision].Status)
		assert.Equal(t, NA, stat.Components[Cache].Status)
		assert.Equal(t, 0, len(stat.Components[Discord].Records))
		assert.NotEmpty(t, stat.Uptime)
	})
	t.Run("healthy after all components report ok", func(t *testing.T) {
		reporter := NewNullReporter()
		srv := httptest.NewServer(reporter.HttpHandler())
		reporter.ReportOk(Discord, "connected")
		stat := readStatus(srv.URL)

		assert.Equal(t, Degraded, stat.Status)
		assert.Equal(t, Healthy, stat.Components[Discord].Status)

		reporter.ReportOk(Chat, "model ok")
		reporter.ReportOk(Flux, "server ok")
		stat = readStatus(srv.URL)

		assert.Equal(t, Healthy, stat.Status)
		assert.Equal(t, 1, len(stat.Components[Discord].Records))
	})
	t.Run("down after first error, then ok, then degraded", func(t *testing.T) {
		reporter := NewNullReporter()
		reporter.ReportOk(Chat, "")
		reporter.ReportOk(Flux, "")
		reporter.ReportError(Discord, "")
		stat := reporter.GetStatus()

		assert.Equal(t, Degraded, stat.Status)
		assert.Equal(t, Down, stat.Components[Discord].Status)

		reporter.ReportOk(Discord, "")
		stat = reporter.GetStatus()

		assert.Equal(t, Healthy, stat.Status)
		assert.Equal(t, Healthy, stat.Components[Discord].Status)

		reporter.ReportError(Discord, "")
		reporter.ReportError(Discord, "")
		stat = reporter.GetStatus()

		assert.Equal(t, Degraded, stat.Status)
		assert.Equal(t, Degraded, stat.Components[Discord].Status)
	})
	t.Run("max 5 records", func(t *testing.T) {
		reporter := NewNullReporter()
		reporter.ReportOk(Flux, "m1")
		reporter.ReportOk(Flux, "m2")
		reporter.ReportOk(Flux, "m3")
		reporter.ReportOk(Flux, "m4")
		reporter.ReportOk(Flux, "m5")
		reporter.ReportOk(Flux, "m6")
		stat := reporter.GetStatus()

		assert.Equal(t, 5, len(stat.Components[Flux].Records))
		assert.Contains(t, stat.Components[Flux].Records[0], "m2")
		assert.Contains(t, stat.Components[Flux].Records[4], "m6")
	})
	t.Run("cache active when configured", func(t *testing.T) {
		reporter := NewReporter(&config.Config{Cache: config.CacheConfig{Redis: config.RedisConfig{Enabled: true}}})
		stat := reporter.GetStatus()

		assert.Equal(t, Initializing, stat.Components[Cache].Status)

		reporter.ReportOk(Cache, "store write succeeded")
		stat = reporter.GetStatus()

		assert.Equal(t, Healthy, stat.Components[Cache].Status)
	})
	t.Run("vision active when configured", func(t *testing.T) {
		reporter := NewReporter(&config.Config{Vision: config.VisionConfig{Url: "http://localhost:5001"}})
		stat := reporter.GetStatus()

		assert.Equal(t, Initializing, stat.Components[Vision].Status)
	})
}

func TestReporter_Degraded_Calc(t *testing.T) {
	t.Run("2 records, 1 error then 1 ok", func(t *testing.T) {
		reporter := NewNullReporter()
		reporter.ReportError(Flux, "")
		reporter.ReportOk(Flux, "")
		stat := reporter.GetStatus()

		assert.Equal(t, Healthy, stat.Components[Flux].Status)
	})
	t.Run("2 records, 1 ok then 1 error", func(t *testing.T) {
		reporter := NewNullReporter()
		reporter.ReportOk(Flux, "")
		reporter.ReportError(Flux, "")
		stat := reporter.GetStatus()

		assert.Equal(t, Healthy, stat.Components[Flux].Status)
	})
	t.Run("3 records, 1 ok then 2 errors", func(t *testing.T) {
		reporter := NewNullReporter()
		reporter.ReportOk(Flux, "")
		reporter.ReportError(Flux, "")
		reporter.ReportError(Flux, "")
		stat := reporter.GetStatus()

		assert.Equal(t, Degraded, stat.Components[Flux].Status)
	})
	t.Run("3 records, 1 error then 1 ok then 1 error", func(t *testing.T) {
		reporter := NewNullReporter()
		reporter.ReportError(Flux, "")
		reporter.ReportOk(Flux, "")
		reporter.ReportError(Flux, "")
		stat := reporter.GetStatus()

		assert.Equal(t, Healthy, stat.Components[Flux].Status)
	})
}

func readStatus(url string) Status {
	client := http.Client{}
	req, _ := http.NewRequest(http.MethodGet, url, http.NoBody)
	resp, _ := client.Do(req)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	var stat Status
	_ = json.Unmarshal(body, &stat)
	return stat
}
