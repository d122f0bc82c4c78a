package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Reporter interface {
	IncrementMessageHandled(guildId string)
	IncrementChatResponse(guildId string)
	IncrementImageGenerated(guildId string, action string)
	IncrementCommand(command string)
	IncrementRateLimited()
	IncrementUrlSummary()
	MeasureChatResponse(duration time.Duration)
	MeasureImageGeneration(action string, duration time.Duration)
	MeasureUrlFetch(duration time.Duration)
	SetQueueLength(length int)

	HttpHandler() http.Handler
}

type reporter struct {
	registry         *prometheus.Registry
	messagesHandled  *prometheus.CounterVec
	chatResponses    *prometheus.CounterVec
	imagesGenerated  *prometheus.CounterVec
	commands         *prometheus.CounterVec
	rateLimited      prometheus.Counter
	urlSummaries     prometheus.Counter
	chatResponseTime prometheus.Histogram
	imageGenTime     *prometheus.HistogramVec
	urlFetchTime     prometheus.Histogram
	queueLength      prometheus.Gauge
}

func NewReporter() Reporter {
	reg := prometheus.NewRegistry()

	messagesHandled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soupy",
		Name:      "messages_handled_total",
		Help:      "Total number of guild messages inspected by the bot.",
	}, []string{"guild"})

	chatResponses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soupy",
		Name:      "chat_responses_total",
		Help:      "Total number of chat responses sent by the bot.",
	}, []string{"guild"})

	imagesGenerated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soupy",
		Name:      "images_generated_total",
		Help:      "Total number of generated images per action.",
	}, []string{"guild", "action"})

	commands := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "soupy",
		Name:      "commands_total",
		Help:      "Total number of executed commands.",
	}, []string{"command"})

	rateLimited := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "soupy",
		Name:      "rate_limited_total",
		Help:      "Total number of interactions rejected by the rate limiter.",
	})

	urlSummaries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "soupy",
		Name:      "url_summaries_total",
		Help:      "Total number of summarized links.",
	})

	chatResponseTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "soupy",
		Name:      "chat_response_duration_seconds",
		Help:      "Histogram of chat completion response time in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	imageGenTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "soupy",
		Name:      "image_generation_duration_seconds",
		Help:      "Histogram of image generation time in seconds.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
	}, []string{"action"})

	urlFetchTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "soupy",
		Name:      "url_fetch_duration_seconds",
		Help:      "Histogram of URL summary fetch time in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	queueLength := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "soupy",
		Name:      "image_queue_length",
		Help:      "Number of image generation jobs waiting in the queue.",
	})

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		messagesHandled,
		chatResponses,
		imagesGenerated,
		commands,
		rateLimited,
		urlSummaries,
		chatResponseTime,
		imageGenTime,
		urlFetchTime,
		queueLength,
	)

	return &reporter{
		registry:         reg,
		messagesHandled:  messagesHandled,
		chatResponses:    chatResponses,
		imagesGenerated:  imagesGenerated,
		commands:         commands,
		rateLimited:      rateLimited,
		urlSummaries:     urlSummaries,
		chatResponseTime: chatResponseTime,
		imageGenTime:     imageGenTime,
		urlFetchTime:     urlFetchTime,
		queueLength:      queueLength,
	}
}

func (r *reporter) HttpHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *reporter) IncrementMessageHandled(guildId string) {
	r.messagesHandled.WithLabelValues(guildId).Inc()
}

func (r *reporter) IncrementChatResponse(guildId string) {
	r.chatResponses.WithLabelValues(guildId).Inc()
}

func (r *reporter) IncrementImageGenerated(guildId string, action string) {
	r.imagesGenerated.WithLabelValues(guildId, action).Inc()
}

func (r *reporter) IncrementCommand(command string) {
	r.commands.WithLabelValues(command).Inc()
}

func (r *reporter) IncrementRateLimited() {
	r.rateLimited.Inc()
}

func (r *reporter) IncrementUrlSummary() {
	r.urlSummaries.Inc()
}

func (r *reporter) MeasureChatResponse(duration time.Duration) {
	r.chatResponseTime.Observe(duration.Seconds())
}

func (r *reporter) MeasureImageGeneration(action string, duration time.Duration) {
	r.imageGenTime.WithLabelValues(action).Observe(duration.Seconds())
}

func (r *reporter) MeasureUrlFetch(duration time.Duration) {
	r.urlFetchTime.Observe(duration.Seconds())
}

func (r *reporter) SetQueueLength(length int) {
	r.queueLength.Set(float64(length))
}
