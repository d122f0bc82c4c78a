package main

import (
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sneezeparty/soupy/bot"
	"github.com/sneezeparty/soupy/chat"
	"github.com/sneezeparty/soupy/config"
	"github.com/sneezeparty/soupy/diag"
	"github.com/sneezeparty/soupy/diag/metrics"
	"github.com/sneezeparty/soupy/diag/status"
	"github.com/sneezeparty/soupy/flux"
	"github.com/sneezeparty/soupy/geo"
	"github.com/sneezeparty/soupy/log"
	"github.com/sneezeparty/soupy/prompt"
	"github.com/sneezeparty/soupy/stats"
	"github.com/sneezeparty/soupy/store"
	"github.com/sneezeparty/soupy/vision"
	"github.com/sneezeparty/soupy/webtext"
)

const (
	exitOk = iota
	exitFailure
)

const imageQueueCapacity = 100

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	os.Exit(run(sigChan))
}

func run(closeSignal chan os.Signal) int {
	logger := log.NewLogger(os.Stderr, os.Stdout, log.Warn)
	logger.Reportf("service starting...")
	var configFile string
	flag.StringVar(&configFile, "c", "", "path to the configuration file")
	flag.Parse()

	conf, err := config.LoadConfigFromFileAndEnvironment(configFile)
	if err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}
	err = conf.Validate()
	if err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}

	logger = logger.WithLevel(conf.Log.GetLevel())

	errorChan := make(chan error)

	statusReporter := status.NewReporter(&conf)

	var metricsReporter metrics.Reporter
	if conf.Diag.Metrics.Enabled {
		metricsReporter = metrics.NewReporter()
	}

	var diagServer *diag.Server
	if conf.Diag.Metrics.Enabled || conf.Diag.Status.Enabled {
		diagServer = diag.NewServer(&conf.Diag, metricsReporter, statusReporter, logger, errorChan)
		diagServer.Listen()
	}

	externalStore, err := store.SetupExternalStore(&conf.Cache, logger)
	if err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}
	cache := store.NewReportingStore(externalStore, statusReporter)

	chatClient := chat.NewClient(&conf.Chat, statusReporter, metricsReporter, logger)
	fluxClient := flux.NewClient(&conf.Flux, statusReporter, metricsReporter, logger)
	visionAnalyzer := vision.NewAnalyzer(&conf.Vision, cache, statusReporter, logger)
	summarizer := webtext.NewSummarizer(&conf.Cache, cache, metricsReporter, logger)

	library, err := prompt.NewLibrary(&conf.Prompt, logger)
	if err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}
	promptGenerator := prompt.NewGenerator(library, chatClient, &conf.Chat, logger)

	geoService, err := geo.NewService(logger)
	if err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}

	tracker := stats.NewTracker(cache, logger)

	queue := flux.NewQueue(imageQueueCapacity, metricsReporter, logger)
	queue.Listen()

	discordBot, err := bot.NewBot(&conf, bot.Dependencies{
		ChatClient:      chatClient,
		FluxClient:      fluxClient,
		Queue:           queue,
		Vision:          visionAnalyzer,
		Summarizer:      summarizer,
		Prompts:         promptGenerator,
		Geo:             geoService,
		Stats:           tracker,
		StatusReporter:  statusReporter,
		MetricsReporter: metricsReporter,
	}, logger)
	if err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}
	if err = discordBot.Listen(); err != nil {
		logger.Errorf("%s", err)
		return exitFailure
	}

	for {
		select {
		case <-closeSignal:
			discordBot.Shutdown()
			library.Close()

			shutDownCount := 1
			if diagServer != nil {
				shutDownCount++
			}
			wg := sync.WaitGroup{}
			wg.Add(shutDownCount)
			go func() {
				queue.Shutdown()
				wg.Done()
			}()
			if diagServer != nil {
				go func() {
					diagServer.Shutdown()
					wg.Done()
				}()
			}
			wg.Wait()
			externalStore.Shutdown()
			return exitOk
		case err = <-errorChan:
			logger.Errorf("%s", err)
			return exitFailure
		}
	}
}
