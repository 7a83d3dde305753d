package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
	// MaxTextBytes bounds POST bodies on the speech endpoints.
	MaxTextBytes int `yaml:"max_text_bytes"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Node        NodeConfig       `yaml:"node"`
	EventStore  EventStoreConfig `yaml:"event_store"`
	TTS         TTSConfig        `yaml:"tts"`
	Voice       VoiceConfig      `yaml:"voice"`
	Playback    PlaybackConfig   `yaml:"playback"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	// ConnectRetry is the total time spent retrying the first connection.
	ConnectRetry int `yaml:"connect_retry_ms"`
}

type NodeConfig struct {
	ID                string           `yaml:"id"`
	Role              string           `yaml:"role"`
	HeartbeatInterval int              `yaml:"heartbeat_interval_ms"`
	HeartbeatTimeout  int              `yaml:"heartbeat_timeout_ms"`
	Capabilities      []NodeCapability `yaml:"capabilities"`
}

type NodeCapability struct {
	Name       string            `yaml:"name"`
	Tier       string            `yaml:"tier"`
	Attributes map[string]string `yaml:"attributes"`
}

type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type TTSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Mode            string `yaml:"mode"` // sam, exec, mock
	Command         string `yaml:"command"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
	ChunkDurationMS int    `yaml:"chunk_duration_ms"`
	CacheSize       int    `yaml:"cache_size"`
	TimeoutMS       int    `yaml:"timeout_ms"`
}

// VoiceConfig is the default voice. Values are bytes; ints keep the YAML
// and env parsing uniform with the rest of the file.
type VoiceConfig struct {
	Pitch  int  `yaml:"pitch"`
	Speed  int  `yaml:"speed"`
	Mouth  int  `yaml:"mouth"`
	Throat int  `yaml:"throat"`
	Sing   bool `yaml:"sing"`
}

type PlaybackConfig struct {
	Enabled  bool `yaml:"enabled"`
	BufferMS int  `yaml:"buffer_ms"`
}

func Default() Config {
	return Config{
		RuntimeName: "sam-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind:         "0.0.0.0",
			Port:         8080,
			MaxTextBytes: 4096,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Host:           "0.0.0.0",
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
			ConnectRetry:   10000,
		},
		Node: NodeConfig{
			ID:                "sam-node-1",
			Role:              "speech",
			HeartbeatInterval: 2000,
			HeartbeatTimeout:  6000,
			Capabilities: []NodeCapability{
				{Name: "speech.sam", Tier: "realtime"},
			},
		},
		EventStore: EventStoreConfig{
			Path:          "./data/sam-events.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		TTS: TTSConfig{
			Enabled:         true,
			Mode:            "sam",
			SampleRate:      22050,
			Channels:        1,
			ChunkDurationMS: 400,
			CacheSize:       128,
			TimeoutMS:       45000,
		},
		Voice: VoiceConfig{
			Pitch:  64,
			Speed:  72,
			Mouth:  128,
			Throat: 128,
		},
		Playback: PlaybackConfig{
			Enabled:  false,
			BufferMS: 100,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "SAM_RUNTIME_NAME")
	overrideString(&cfg.Environment, "SAM_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "SAM_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "SAM_HTTP_PORT")
	overrideInt(&cfg.HTTP.MaxTextBytes, "SAM_HTTP_MAX_TEXT_BYTES")
	overrideString(&cfg.Telemetry.LogLevel, "SAM_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "SAM_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "SAM_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "SAM_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "SAM_BUS_EMBEDDED")
	overrideString(&cfg.Bus.Host, "SAM_BUS_HOST")
	overrideInt(&cfg.Bus.Port, "SAM_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "SAM_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "SAM_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "SAM_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "SAM_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "SAM_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "SAM_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "SAM_BUS_CONNECT_TIMEOUT_MS")
	overrideInt(&cfg.Bus.ConnectRetry, "SAM_BUS_CONNECT_RETRY_MS")
	overrideString(&cfg.Node.ID, "SAM_NODE_ID")
	overrideString(&cfg.Node.Role, "SAM_NODE_ROLE")
	overrideInt(&cfg.Node.HeartbeatInterval, "SAM_NODE_HEARTBEAT_INTERVAL_MS")
	overrideInt(&cfg.Node.HeartbeatTimeout, "SAM_NODE_HEARTBEAT_TIMEOUT_MS")
	overrideString(&cfg.EventStore.Path, "SAM_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "SAM_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "SAM_EVENT_STORE_RETENTION_DAYS")
	overrideInt(&cfg.EventStore.MaxSessions, "SAM_EVENT_STORE_MAX_SESSIONS")
	overrideBool(&cfg.EventStore.VacuumOnStart, "SAM_EVENT_STORE_VACUUM_ON_START")
	overrideBool(&cfg.TTS.Enabled, "SAM_TTS_ENABLED")
	overrideString(&cfg.TTS.Mode, "SAM_TTS_MODE")
	overrideString(&cfg.TTS.Command, "SAM_TTS_COMMAND")
	overrideInt(&cfg.TTS.SampleRate, "SAM_TTS_SAMPLE_RATE")
	overrideInt(&cfg.TTS.Channels, "SAM_TTS_CHANNELS")
	overrideInt(&cfg.TTS.ChunkDurationMS, "SAM_TTS_CHUNK_DURATION_MS")
	overrideInt(&cfg.TTS.CacheSize, "SAM_TTS_CACHE_SIZE")
	overrideInt(&cfg.TTS.TimeoutMS, "SAM_TTS_TIMEOUT_MS")
	overrideInt(&cfg.Voice.Pitch, "SAM_VOICE_PITCH")
	overrideInt(&cfg.Voice.Speed, "SAM_VOICE_SPEED")
	overrideInt(&cfg.Voice.Mouth, "SAM_VOICE_MOUTH")
	overrideInt(&cfg.Voice.Throat, "SAM_VOICE_THROAT")
	overrideBool(&cfg.Voice.Sing, "SAM_VOICE_SING")
	overrideBool(&cfg.Playback.Enabled, "SAM_PLAYBACK_ENABLED")
	overrideInt(&cfg.Playback.BufferMS, "SAM_PLAYBACK_BUFFER_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.HTTP.MaxTextBytes <= 0 {
		return errors.New("http.max_text_bytes must be positive")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
		if cfg.Bus.StoreDir == "" {
			return errors.New("bus.store_dir must not be empty when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Bus.ConnectRetry < 0 {
		return errors.New("bus.connect_retry_ms must be >= 0")
	}
	if cfg.Node.ID == "" {
		return errors.New("node.id must not be empty")
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return errors.New("node.heartbeat_interval_ms must be positive")
	}
	if cfg.Node.HeartbeatTimeout <= cfg.Node.HeartbeatInterval {
		return errors.New("node.heartbeat_timeout_ms must be greater than heartbeat interval")
	}
	if len(cfg.Node.Capabilities) == 0 {
		return errors.New("node.capabilities must not be empty")
	}
	if cfg.EventStore.Path == "" {
		return errors.New("event_store.path must not be empty")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.EventStore.RetentionDays < 0 {
		return errors.New("event_store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.TTS.Enabled {
		switch cfg.TTS.Mode {
		case "sam", "mock", "exec":
		default:
			return errors.New("tts.mode must be one of sam|mock|exec")
		}
		if cfg.TTS.Mode == "exec" && cfg.TTS.Command == "" {
			return errors.New("tts.command must be set when mode=exec")
		}
		if cfg.TTS.SampleRate <= 0 {
			return errors.New("tts.sample_rate must be positive")
		}
		if cfg.TTS.Channels <= 0 {
			return errors.New("tts.channels must be positive")
		}
		if cfg.TTS.ChunkDurationMS <= 0 {
			return errors.New("tts.chunk_duration_ms must be positive")
		}
		if cfg.TTS.CacheSize < 0 {
			return errors.New("tts.cache_size must be >= 0")
		}
		if cfg.TTS.TimeoutMS <= 0 {
			return errors.New("tts.timeout_ms must be positive")
		}
	}
	for name, v := range map[string]int{
		"voice.pitch":  cfg.Voice.Pitch,
		"voice.mouth":  cfg.Voice.Mouth,
		"voice.throat": cfg.Voice.Throat,
	} {
		if v < 0 || v > 255 {
			return fmt.Errorf("%s must be between 0 and 255", name)
		}
	}
	if cfg.Voice.Speed < 1 || cfg.Voice.Speed > 255 {
		return errors.New("voice.speed must be between 1 and 255")
	}
	if cfg.Playback.Enabled && cfg.Playback.BufferMS <= 0 {
		return errors.New("playback.buffer_ms must be positive when playback is enabled")
	}
	return nil
}
