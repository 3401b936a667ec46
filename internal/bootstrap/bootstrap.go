// Package bootstrap wires configuration, logging and the domain services
// into runnable processes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"avatar-server-go/internal/domain/llm"
	"avatar-server-go/internal/domain/stt"
	"avatar-server-go/internal/domain/tts"
	"avatar-server-go/internal/platform/config"
	platformerrors "avatar-server-go/internal/platform/errors"
	"avatar-server-go/internal/platform/logging"
	"avatar-server-go/internal/resilience"
	"avatar-server-go/internal/supervisor"
	httptransport "avatar-server-go/internal/transport/http"
)

// monitorInterval is how often the supervisor probes the fleet once it is
// running.
const monitorInterval = 30 * time.Second

type app struct {
	config *config.Config
	speech *config.Speech
	logger *logging.Logger
}

func setup(logFile string) (*app, error) {
	result, err := config.NewLoader().WithDotEnv(true).Load()
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.setup", "failed to load configuration", err)
	}
	cfg := result.Config

	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: logFile,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.setup", "failed to initialise logging", err)
	}

	if result.Path != "" {
		logger.InfoTag("bootstrap", "configuration loaded from %s", result.Path)
	} else {
		logger.InfoTag("bootstrap", "no configuration file found, using defaults")
	}

	speech, err := config.LoadSpeech(cfg.Speech.Path)
	if err != nil {
		logger.WarnTag("bootstrap", "speech config fallback: %v", err)
	}
	logger.InfoTag("bootstrap", "languages: %v, speakers: %v", speech.Languages, speech.Speakers)

	return &app{config: cfg, speech: speech, logger: logger}, nil
}

// servicePort resolves the port a service should listen on, falling back
// when the fleet section does not describe it.
func (a *app) servicePort(name string, fallback int) int {
	if svc := a.config.Service(name); svc != nil {
		return svc.Port
	}
	return fallback
}

// RunSupervisor launches the fleet, waits for every service to report
// healthy, then monitors it until a shutdown signal arrives.
func RunSupervisor(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup("supervisor.log")
	if err != nil {
		return err
	}
	defer a.logger.Close()

	descriptors := supervisor.DescriptorsFromConfig(a.config)
	sup := supervisor.New(descriptors, a.logger, nil)
	if err := watchFleet(sup, a.logger); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap", "failed to subscribe to fleet state", err)
	}

	if err := sup.LaunchAll(ctx); err != nil {
		return err
	}

	if err := sup.AwaitStartup(ctx); err != nil {
		a.logger.ErrorTag("bootstrap", "startup failed: %v", err)
		sup.ShutdownAll()
		return err
	}
	a.logger.InfoTag("bootstrap", "all services healthy")

	go sup.MonitorLoop(ctx, monitorInterval)

	<-ctx.Done()
	a.logger.InfoTag("bootstrap", "shutdown signal received")
	sup.ShutdownAll()
	return nil
}

// watchFleet relays fleet state changes to the operator-facing log. A stop
// or an unhealthy turn after startup is worth the louder level.
func watchFleet(sup *supervisor.Supervisor, logger *logging.Logger) error {
	return sup.Bus().Subscribe(supervisor.TopicServiceState, func(name, from, to string) {
		switch supervisor.HealthState(to) {
		case supervisor.StateStopped, supervisor.StateUnhealthy:
			logger.WarnTag("bootstrap", "%s degraded: %s -> %s", name, from, to)
		default:
			logger.InfoTag("bootstrap", "%s is %s", name, to)
		}
	})
}

// RunAPI starts the user-facing generation service.
func RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup("api.log")
	if err != nil {
		return err
	}
	defer a.logger.Close()

	backend := llm.NewGroqBackend(a.config.LLM)
	detector := llm.NewDetector()
	cache := resilience.NewCache(a.config.Cache.MaxEntries, a.config.Cache.TTL())
	service := llm.NewService(backend, detector, cache, resilience.DefaultPolicy, a.config.LLM.Timeout(), a.logger)

	ttsBase := fmt.Sprintf("http://127.0.0.1:%d", a.servicePort("tts", 5000))
	proxy := llm.NewTTSProxy(ttsBase, resilience.DefaultPolicy, a.logger)

	router := httptransport.Build(httptransport.Options{Config: a.config, Logger: a.logger})
	httptransport.NewAPIHandlers(service, backend, proxy, a.logger).Register(router)

	return serve(ctx, a.logger, router, a.servicePort("api", 5001))
}

// RunTTS starts the speech synthesis service.
func RunTTS(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup("tts.log")
	if err != nil {
		return err
	}
	defer a.logger.Close()

	store, err := tts.NewStore(a.config.Synthesis.OutputDir, a.config.Synthesis.PublicPrefix)
	if err != nil {
		return err
	}
	engine := tts.NewEdgeEngine(a.logger)
	limiter := resilience.NewLimiter(a.config.Synthesis.MaxConcurrent)
	pipeline := tts.NewPipeline(engine, store, limiter, a.speech, a.config.Synthesis, a.logger)

	router := httptransport.Build(httptransport.Options{Config: a.config, Logger: a.logger})
	httptransport.NewTTSHandlers(pipeline, a.speech, a.logger).Register(router)

	return serve(ctx, a.logger, router, a.servicePort("tts", 5000))
}

// RunSTT starts the transcription service.
func RunSTT(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := setup("stt.log")
	if err != nil {
		return err
	}
	defer a.logger.Close()

	backend := stt.NewWhisperBackend(a.config.STT)
	service := stt.NewService(backend, a.config.Synthesis.OutputDir, a.logger)

	router := httptransport.Build(httptransport.Options{Config: a.config, Logger: a.logger})
	httptransport.NewSTTHandlers(service, a.speech, a.logger).Register(router)

	return serve(ctx, a.logger, router, a.servicePort("stt", 5002))
}

// serve runs the router on the given port until the context is cancelled,
// then drains in-flight requests.
func serve(ctx context.Context, logger *logging.Logger, router *httptransport.Router, port int) error {
	server := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: router.Engine,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoTag("http", "listening on http://localhost:%d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return platformerrors.Wrap(platformerrors.KindBootstrap, "bootstrap.serve", "http server failed", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.ErrorTag("http", "shutdown failed: %v", err)
			return err
		}
		logger.InfoTag("http", "server stopped")
		return nil
	})

	return group.Wait()
}
