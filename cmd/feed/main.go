package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/redis/go-redis/v9"
	"github.com/yanun0323/logs"

	"tickflow/internal/cache"
	"tickflow/internal/dispatch"
	"tickflow/internal/heartbeat"
	"tickflow/internal/instrument"
	"tickflow/internal/model"
	"tickflow/internal/obs"
	"tickflow/internal/ops"
	"tickflow/internal/recorder"
	"tickflow/internal/strategy"
	"tickflow/internal/tick"
	"tickflow/internal/transport/shoonya"
)

const defaultFeedURL = "ws://localhost:9000"

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	feedURL := flag.String("feed-url", "", "Feed websocket URL (overrides config)")
	pyroscopeAddr := flag.String("pyroscope", "", "Pyroscope server address (empty=disabled)")
	flag.Parse()

	loaded, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	url := loaded.Feed.URL
	if *feedURL != "" {
		url = *feedURL
	}
	if url == "" {
		url = defaultFeedURL
	}

	if *pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "tickflow/feed",
			ServerAddress:   *pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			log.Fatalf("pyroscope start failed: %v", err)
		}
		defer profiler.Stop()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := tick.NewStore()
	liveness := tick.NewLiveness()
	metrics := obs.NewMetrics()
	dispatcher := dispatch.NewDispatcher(loaded.Dispatch, metrics)

	sink := dispatcher.Dispatch
	if loaded.Redis != nil {
		mirror := cache.NewMirror(redis.NewClient(&redis.Options{
			Addr:     loaded.Redis.Addr,
			Password: loaded.Redis.Password,
			DB:       loaded.Redis.DB,
		}), time.Duration(loaded.Redis.TTLSeconds)*time.Second)
		inner := sink
		sink = func(event model.Event) {
			inner(event)
			mirror.Observe(ctx, event)
		}
	}

	normalizer := tick.NewNormalizer(store, liveness, sink, metrics).
		WithVerboseRaw(loaded.Logging.VerboseRaw).
		WithTickPrint(loaded.Logging.PrintTicks)

	tokens, scrips, err := resolveInstruments(ctx, loaded)
	if err != nil {
		log.Fatalf("instrument resolution failed: %v", err)
	}
	for _, token := range tokens {
		momentum := strategy.NewMomentum(fmt.Sprintf("momentum-%s", token), token, 0, 0)
		if _, err := dispatcher.Register(momentum); err != nil {
			log.Fatalf("register strategy for %s failed: %v", token, err)
		}
	}

	var capture *recorder.Writer
	if loaded.Capture != nil {
		cfg := recorder.DefaultConfig(loaded.Capture.Dir)
		if loaded.Capture.FilePrefix != "" {
			cfg.FilePrefix = loaded.Capture.FilePrefix
		}
		capture, err = recorder.NewWriter(cfg)
		if err != nil {
			log.Fatalf("capture init failed: %v", err)
		}
		if err := capture.Start(ctx); err != nil {
			log.Fatalf("capture start failed: %v", err)
		}
	}

	monitor := heartbeat.NewMonitor(loaded.Heartbeat, liveness, nil, metrics)
	monitor.Start()

	client := shoonya.NewClient(ctx, url)
	if err := client.StartWebsocket(ctx); err != nil {
		log.Fatalf("feed connect failed: %v", err)
	}
	if len(scrips) > 0 {
		if err := client.Subscribe(ctx, scrips); err != nil {
			log.Fatalf("feed subscribe failed: %v", err)
		}
	}

	logs.Infof("feed running: url=%s instruments=%d", url, len(tokens))
	runErr := client.Run(ctx, func(msg model.RawMessage) {
		if capture != nil {
			if frame, err := model.EncodeRaw(msg); err == nil {
				if err := capture.TryAppend(frame); err != nil {
					logs.Warnf("capture append failed, err: %+v", err)
				}
			}
		}
		normalizer.Process(msg)
	})

	// shutdown order: stop intake, then consumers, then the monitor
	client.Close()
	dispatcher.Close()
	monitor.Stop()
	if capture != nil {
		if err := capture.Close(); err != nil {
			logs.Errorf("capture close failed, err: %+v", err)
		}
	}

	snap := metrics.Read()
	logs.Infof("feed stopped: messages=%d snapshots=%d deltas=%d violations=%d dispatched=%d drops=%d warnings=%d",
		snap.Messages, snap.Snapshots, snap.Deltas, snap.ProtocolViolations,
		snap.Dispatched, snap.QueueDrops, snap.HeartbeatWarnings)

	if runErr != nil && ctx.Err() == nil {
		log.Fatalf("feed stopped with error: %v", runErr)
	}
}

func loadConfig(path string) (ops.Loaded, error) {
	if path == "" {
		return ops.Resolve(ops.FileConfig{})
	}
	return ops.Load(path)
}

// resolveInstruments turns configured instruments into tokens and
// "EXCHANGE|token" subscription keys, consulting the instrument master
// for entries configured by symbol.
func resolveInstruments(ctx context.Context, loaded ops.Loaded) ([]model.Token, []string, error) {
	var repo *instrument.Repository
	if loaded.Postgres != nil {
		var err error
		repo, err = instrument.Open(*loaded.Postgres)
		if err != nil {
			return nil, nil, err
		}
		defer repo.Close()
	}

	var (
		tokens []model.Token
		scrips []string
	)
	for _, inst := range loaded.Instruments {
		token := model.Token(inst.Token)
		if token == "" {
			if repo == nil {
				return nil, nil, fmt.Errorf("instrument %s|%s has no token and no instrument master is configured",
					inst.Exchange, inst.Symbol)
			}
			resolved, err := repo.ResolveToken(ctx, inst.Exchange, inst.Symbol)
			if err != nil {
				return nil, nil, err
			}
			token = resolved
		}
		tokens = append(tokens, token)
		scrips = append(scrips, fmt.Sprintf("%s|%s", inst.Exchange, token))
	}
	return tokens, scrips, nil
}
