package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"tickflow/internal/dispatch"
	"tickflow/internal/heartbeat"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Feed        FeedConfig         `json:"feed"`
	Heartbeat   HeartbeatConfig    `json:"heartbeat"`
	Dispatch    DispatchConfig     `json:"dispatch"`
	Logging     LoggingConfig      `json:"logging"`
	Instruments []InstrumentConfig `json:"instruments"`
	Postgres    *PostgresConfig    `json:"postgres"`
	Redis       *RedisConfig       `json:"redis"`
	Capture     *CaptureConfig     `json:"capture"`
}

// FeedConfig describes the upstream feed endpoint.
type FeedConfig struct {
	URL string `json:"url"`
}

// HeartbeatConfig carries liveness thresholds in seconds.
type HeartbeatConfig struct {
	CheckIntervalSec  int `json:"checkIntervalSec"`
	MessageTimeoutSec int `json:"messageTimeoutSec"`
	PriceTimeoutSec   int `json:"priceTimeoutSec"`
}

// DispatchConfig controls subscriber queue behavior.
type DispatchConfig struct {
	QueueCapacity  int    `json:"queueCapacity"`
	Policy         string `json:"policy"`
	BlockTimeoutMS int    `json:"blockTimeoutMs"`
	WindowSize     int    `json:"windowSize"`
	DrainOnClose   *bool  `json:"drainOnClose"`
	LogSkips       bool   `json:"logSkips"`
}

// LoggingConfig captures diagnostic toggles.
type LoggingConfig struct {
	VerboseRaw bool `json:"verboseRaw"`
	PrintTicks bool `json:"printTicks"`
}

// InstrumentConfig names one instrument to subscribe. Token may be
// given directly or resolved via the instrument master.
type InstrumentConfig struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Token    string `json:"token"`
}

// PostgresConfig describes the optional instrument master database.
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// RedisConfig describes the optional latest-price mirror.
type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// CaptureConfig enables recording of the raw feed.
type CaptureConfig struct {
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Feed        FeedConfig
	Heartbeat   heartbeat.Config
	Dispatch    dispatch.Config
	Logging     LoggingConfig
	Instruments []InstrumentConfig
	Postgres    *PostgresConfig
	Redis       *RedisConfig
	Capture     *CaptureConfig
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve validates a file config and builds the runtime view.
// Omitted values fall back to component defaults.
func Resolve(cfg FileConfig) (Loaded, error) {
	dispatchCfg, err := resolveDispatch(cfg.Dispatch)
	if err != nil {
		return Loaded{}, err
	}
	if err := validateInstruments(cfg.Instruments); err != nil {
		return Loaded{}, err
	}
	if err := validateHeartbeat(cfg.Heartbeat); err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Feed:        cfg.Feed,
		Heartbeat:   resolveHeartbeat(cfg.Heartbeat),
		Dispatch:    dispatchCfg,
		Logging:     cfg.Logging,
		Instruments: cfg.Instruments,
		Postgres:    cfg.Postgres,
		Redis:       cfg.Redis,
		Capture:     cfg.Capture,
	}, nil
}

func resolveHeartbeat(cfg HeartbeatConfig) heartbeat.Config {
	return heartbeat.Config{
		CheckInterval:    time.Duration(cfg.CheckIntervalSec) * time.Second,
		MessageThreshold: time.Duration(cfg.MessageTimeoutSec) * time.Second,
		PriceThreshold:   time.Duration(cfg.PriceTimeoutSec) * time.Second,
	}
}

func validateHeartbeat(cfg HeartbeatConfig) error {
	if cfg.CheckIntervalSec < 0 || cfg.MessageTimeoutSec < 0 || cfg.PriceTimeoutSec < 0 {
		return fmt.Errorf("heartbeat intervals must be >= 0")
	}
	return nil
}

func resolveDispatch(cfg DispatchConfig) (dispatch.Config, error) {
	out := dispatch.Config{
		QueueCapacity: cfg.QueueCapacity,
		BlockTimeout:  time.Duration(cfg.BlockTimeoutMS) * time.Millisecond,
		WindowSize:    cfg.WindowSize,
		DrainOnClose:  true,
		LogSkips:      cfg.LogSkips,
	}
	switch cfg.Policy {
	case "", "drop":
		out.Policy = dispatch.PolicyDrop
	case "block":
		out.Policy = dispatch.PolicyBlock
	default:
		return dispatch.Config{}, fmt.Errorf("unknown dispatch policy: %s", cfg.Policy)
	}
	if cfg.QueueCapacity < 0 {
		return dispatch.Config{}, fmt.Errorf("queueCapacity must be >= 0")
	}
	if cfg.DrainOnClose != nil {
		out.DrainOnClose = *cfg.DrainOnClose
	}
	return out, nil
}

func validateInstruments(instruments []InstrumentConfig) error {
	for i, inst := range instruments {
		if inst.Token == "" && inst.Symbol == "" {
			return fmt.Errorf("instrument %d needs a token or a symbol", i)
		}
		if inst.Exchange == "" {
			return fmt.Errorf("instrument %d missing exchange", i)
		}
	}
	return nil
}
