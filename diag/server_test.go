package diag

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/log"
	"github.com/stretchr/testify/assert"
)

func TestNewServer(t *testing.T) {
	errChan := make(chan error)
	conf := config.DiagConfig{
		Port:    5051,
		Status:  config.StatusConfig{Enabled: true},
		Metrics: config.MetricsConfig{Enabled: true},
	}

	srv := NewServer(&conf, metrics.NewReporter(), status.NewNullReporter(), log.NewNullLogger(), errChan)
	srv.Listen()
	time.Sleep(500 * time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost:5051/", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "Soupy está vivo y activo.", string(body))

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:5051/status", http.NoBody)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:5051/metrics", http.NoBody)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	srv.Shutdown()

	assert.Nil(t, readFromErrChan(errChan))
}

func TestNewServer_NotEnabled(t *testing.T) {
	errChan := make(chan error)
	conf := config.DiagConfig{
		Port:    5052,
		Status:  config.StatusConfig{Enabled: false},
		Metrics: config.MetricsConfig{Enabled: false},
	}

	srv := NewServer(&conf, metrics.NewReporter(), status.NewNullReporter(), log.NewNullLogger(), errChan)
	srv.Listen()
	time.Sleep(500 * time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost:5052/status", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:5052/metrics", http.NoBody)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	srv.Shutdown()

	assert.Nil(t, readFromErrChan(errChan))
}

func TestNewServer_NilReporters(t *testing.T) {
	errChan := make(chan error)
	conf := config.DiagConfig{
		Port:    5053,
		Status:  config.StatusConfig{Enabled: true},
		Metrics: config.MetricsConfig{Enabled: true},
	}
	srv := NewServer(&conf, nil, nil, log.NewNullLogger(), errChan)
	srv.Listen()
	time.Sleep(500 * time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, "http://localhost:5053/status", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodGet, "http://localhost:5053/metrics", http.NoBody)
	resp, err = http.DefaultClient.Do(req)
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	srv.Shutdown()

	assert.Nil(t, readFromErrChan(errChan))
}

func readFromErrChan(ch chan error) error {
	select {
	case val, ok := <-ch:
		if ok {
			return val
		}
	default:
		return nil
	}
	return nil
}
