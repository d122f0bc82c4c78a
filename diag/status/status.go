package status

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/internal/utils"
)

type HealthStatus string

const (
	Discord = "discord"
	Chat    = "chat"
	Flux    = "flux"
	Vision  = "vision"
	Cache   = "cache"

	Healthy      HealthStatus = "healthy"
	Degraded     HealthStatus = "degraded"
	Initializing HealthStatus = "initializing"
	Down         HealthStatus = "down"
	NA           HealthStatus = "n/a"
)

const maxRecordCount = 5
const maxLastErrorsMeaningDegraded = 2

type Reporter interface {
	ReportOk(component string, message string)
	ReportError(component string, message string)
	GetStatus() Status

	HttpHandler() http.HandlerFunc
}

type Status struct {
	Status     HealthStatus                `json:"status"`
	Uptime     string                      `json:"uptime"`
	Components map[string]*ComponentStatus `json:"components"`
}

type ComponentStatus struct {
	Status  HealthStatus `json:"status"`
	Records []string     `json:"records"`
}

type record struct {
	time    time.Time
	isError bool
	message string
}

type reporter struct {
	records map[string][]record
	mu      sync.RWMutex
	status  Status
	started time.Time
}

func NewNullReporter() Reporter {
	return NewReporter(&config.Config{})
}

func NewReporter(conf *config.Config) Reporter {
	r := &reporter{
		records: make(map[string][]record),
		started: time.Now(),
		status: Status{
			Status:     Initializing,
			Components: make(map[string]*ComponentStatus),
		},
	}
	for _, component := range []string{Discord, Chat, Flux} {
		r.status.Components[component] = &ComponentStatus{Status: Initializing}
	}
	visionStatus := &ComponentStatus{Status: Initializing}
	if conf.Vision.Url == "" {
		visionStatus.Status = NA
	}
	r.status.Components[Vision] = visionStatus
	cacheStatus := &ComponentStatus{Status: Initializing}
	if !conf.Cache.IsSet() {
		cacheStatus.Status = NA
	}
	r.status.Components[Cache] = cacheStatus
	return r
}

func (r *reporter) ReportOk(component string, message string) {
	r.appendRecord(component, "[ok] "+message, false)
}

func (r *reporter) ReportError(component string, message string) {
	r.appendRecord(component, "[error] "+message, true)
}

func (r *reporter) HttpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status, err := json.Marshal(r.GetStatus())
		if err != nil {
			http.Error(w, "Error producing status", http.StatusInternalServerError)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(status)
	}
}

func (r *reporter) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := r.status
	status.Uptime = utils.FormatUptime(time.Since(r.started))
	return status
}

func (r *reporter) checkStatus(records []record) ([]string, HealthStatus) {
	length := len(records)
	targetRecords := make([]string, length)
	var errorCount = 0
	for i, msg := range records {
		targetRecords[i] = msg.time.UTC().Format(time.RFC1123) + ": " + msg.message
		if i >= length-maxLastErrorsMeaningDegraded {
			if msg.isError {
				errorCount++
			} else {
				errorCount--
			}
		}
	}
	if errorCount > 0 && errorCount >= utils.Min(maxLastErrorsMeaningDegraded, length) {
		return targetRecords, Degraded
	}
	return targetRecords, Healthy
}

func (r *reporter) appendRecord(component string, message string, isError bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recs, ok := r.records[component]
	if !ok {
		recs = make([]record, 0, maxRecordCount)
	}
	recs = append(recs, record{time: time.Now(), isError: isError, message: message})
	if len(recs) > maxRecordCount {
		recs = recs[1:]
	}
	r.records[component] = recs
	rec, stat := r.checkStatus(recs)
	comp, ok := r.status.Components[component]
	if !ok {
		comp = &ComponentStatus{}
		r.status.Components[component] = comp
	}
	comp.Records = rec
	if stat == Degraded && (comp.Status == Initializing || comp.Status == Down) {
		stat = Down
	}
	comp.Status = stat

	allDown := true
	hasDegraded := false
	for _, c := range r.status.Components {
		if c.Status == NA {
			continue
		}
		if c.Status != Down {
			allDown = false
		}
		if c.Status != Healthy {
			hasDegraded = true
		}
	}
	if !hasDegraded && !allDown {
		r.status.Status = Healthy
	} else {
		if hasDegraded {
			r.status.Status = Degraded
		}
		if allDown {
			r.status.Status = Down
		}
	}
}
