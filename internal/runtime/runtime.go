package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loqalabs/loqa-sam/internal/bus"
	"github.com/loqalabs/loqa-sam/internal/capability"
	"github.com/loqalabs/loqa-sam/internal/config"
	"github.com/loqalabs/loqa-sam/internal/engine"
	"github.com/loqalabs/loqa-sam/internal/eventstore"
	"github.com/loqalabs/loqa-sam/internal/natsserver"
	"github.com/loqalabs/loqa-sam/internal/playback"
	"github.com/loqalabs/loqa-sam/internal/renderer"
	"github.com/loqalabs/loqa-sam/internal/tts"
)

// Runtime owns the speech node: bus, event log, synthesis service,
// capability announcements and the HTTP surface.
type Runtime struct {
	cfg     config.Config
	version string
	logger  *slog.Logger
	ready   atomic.Bool

	voice    renderer.Options
	sam      *tts.SAM
	recorder *tts.Recorder
	store    *eventstore.Store
	nats     *natsserver.EmbeddedServer
	bus      *bus.Client
	service  *tts.Service
	registry *capability.Registry
	player   *playback.Player
	metrics  http.Handler

	closers []func()
}

func New(cfg config.Config, version string, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:     cfg,
		version: version,
		logger:  logger,
		voice:   tts.VoiceFromConfig(cfg.Voice),
	}
}

// Start brings the node up and blocks until ctx is cancelled or a server
// fails. Everything started is torn down before it returns.
func (r *Runtime) Start(ctx context.Context) error {
	shutdownTelemetry, metrics, err := setupTelemetry(r.cfg, r.version, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.metrics = metrics
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}()

	defer r.closeAll()
	if err := r.open(ctx); err != nil {
		return err
	}

	servers := []*http.Server{r.newServer(fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port), r.routes())}
	if r.metrics != nil && r.cfg.Telemetry.PrometheusBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", r.metrics)
		servers = append(servers, r.newServer(r.cfg.Telemetry.PrometheusBind, mux))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		r.ready.Store(false)
		r.logger.Info("runtime stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", servers[0].Addr), slog.String("version", r.version))
	return g.Wait()
}

func (r *Runtime) newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// open starts the components in dependency order, registering a closer
// for each so a partial start unwinds cleanly.
func (r *Runtime) open(ctx context.Context) error {
	eng := engine.New(r.logger.With(slog.String("component", "engine")))
	sam, err := tts.NewSAM(eng, r.cfg.TTS.CacheSize, r.cfg.TTS.ChunkDurationMS, r.logger)
	if err != nil {
		return fmt.Errorf("create sam synthesizer: %w", err)
	}
	r.sam = sam

	store, err := eventstore.Open(ctx, r.cfg.EventStore, r.logger.With(slog.String("component", "eventstore")))
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	r.store = store
	r.closers = append(r.closers, func() { _ = store.Close() })
	r.recorder = tts.NewRecorder(store, r.logger)

	busCfg := r.cfg.Bus
	srv, err := natsserver.Start(busCfg, r.logger)
	if err != nil {
		return err
	}
	if srv != nil {
		r.nats = srv
		r.closers = append(r.closers, srv.Shutdown)
		busCfg.Servers = []string{srv.ClientURL()}
	}

	client, err := bus.Connect(ctx, busCfg, r.cfg.RuntimeName, r.logger)
	if err != nil {
		return err
	}
	r.bus = client
	r.closers = append(r.closers, client.Close)

	opts := []tts.ServiceOption{
		tts.WithDefaultVoice(r.voice),
		tts.WithPhonemizer(sam),
		tts.WithRecorder(r.recorder),
	}
	if r.cfg.Playback.Enabled {
		player, err := playback.New(r.cfg.Playback, r.logger)
		if err != nil {
			r.logger.Warn("audio playback unavailable", slog.String("error", err.Error()))
		} else {
			r.player = player
			r.closers = append(r.closers, func() {
				if n := player.Pending(); n > 0 {
					r.logger.Info("dropping queued audio", slog.Int("samples", n))
				}
				_ = player.Close()
			})
			opts = append(opts, tts.WithAudioSink(player))
		}
	}

	synth, err := r.synthesizer()
	if err != nil {
		return err
	}
	svc := tts.NewService(ctx, r.cfg.TTS, client, synth, r.logger, opts...)
	if err := svc.Start(); err != nil {
		svc.Close()
		return fmt.Errorf("start tts service: %w", err)
	}
	r.service = svc
	r.closers = append(r.closers, svc.Close)

	registry, err := capability.NewRegistry(ctx, r.cfg.Node, client, r.logger, r.voiceAttributes())
	if err != nil {
		return fmt.Errorf("start capability registry: %w", err)
	}
	r.registry = registry
	r.closers = append(r.closers, registry.Close)
	return nil
}

func (r *Runtime) synthesizer() (tts.Synthesizer, error) {
	switch r.cfg.TTS.Mode {
	case "exec":
		return tts.NewExecSynth(r.cfg.TTS.Command, r.cfg.TTS.SampleRate, r.cfg.TTS.Channels, r.sam)
	case "mock":
		return tts.NewMockSynth(r.cfg.TTS.SampleRate, r.cfg.TTS.Channels), nil
	default:
		return r.sam, nil
	}
}

func (r *Runtime) voiceAttributes() map[string]string {
	return map[string]string{
		"pitch":       strconv.Itoa(int(r.voice.Pitch)),
		"speed":       strconv.Itoa(int(r.voice.Speed)),
		"mouth":       strconv.Itoa(int(r.voice.Mouth)),
		"throat":      strconv.Itoa(int(r.voice.Throat)),
		"sing":        strconv.FormatBool(r.voice.Sing),
		"sample_rate": strconv.Itoa(renderer.SampleRate),
		"mode":        r.cfg.TTS.Mode,
	}
}

func (r *Runtime) closeAll() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}
