package config

import (
	"fmt"
	"os"
	"time"

	"github.com/meerkat-commensal/corral/pkg/metadata"
	"github.com/meerkat-commensal/corral/pkg/types"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with a yaml.v3 unmarshaler so config
// files can write "2s" rather than a raw nanosecond count.
type Duration time.Duration

// UnmarshalYAML implements yaml.v3's node-based unmarshaler interface.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// SensorLists names the CAM sensors the metadata fetcher (pkg/metadata)
// queries or subscribes to, grouped by antenna/CBF-component/stream/
// subarray scope, plus the smaller "on configure" subsets queried once
// rather than subscribed to continuously.
type SensorLists struct {
	PerAntenna         []string `yaml:"per_antenna"`
	CBF                []string `yaml:"cbf"`
	CBFOnConfigure     []string `yaml:"cbf_on_configure"`
	Streams            []string `yaml:"streams"`
	StreamsOnConfigure []string `yaml:"streams_on_configure"`
	Subarray           []string `yaml:"subarray"`
	OnConfigure        []string `yaml:"on_configure"`
}

// RetryOptions bounds the metadata fetcher's one-shot configure-time
// sensor queries.
type RetryOptions struct {
	Attempts    int      `yaml:"attempts"`
	BaseTimeout Duration `yaml:"base_timeout"`
	Factor      float64  `yaml:"factor"`
}

// Config is corral's top-level YAML configuration document.
type Config struct {
	// ProcessingNodes seeds the free host pool on first startup.
	ProcessingNodes []string `yaml:"processing_nodes"`
	// StreamsPerInstance is the per-node stream capacity S.
	StreamsPerInstance int `yaml:"streams_per_instance"`
	// GatewayDomain addresses the parameter gateway's per-host channels.
	GatewayDomain string `yaml:"gateway_domain"`
	NATSURL       string `yaml:"nats_url"`
	WebsocketURL  string `yaml:"websocket_url"`
	StorePath     string `yaml:"store_path"`
	MetricsAddr   string `yaml:"metrics_addr"`

	Sensors SensorLists  `yaml:"sensors"`
	Retry   RetryOptions `yaml:"retry"`
}

// Default returns corral's built-in configuration, used whenever no
// config file is present or it fails to parse. A config fault logs and
// falls back rather than aborting startup; the free pool is rebuilt
// from the store when one exists.
func Default() *Config {
	return &Config{
		StreamsPerInstance: 4,
		GatewayDomain:      "bluse",
		NATSURL:            "nats://127.0.0.1:4222",
		WebsocketURL:       "ws://telescope-control.invalid/ws",
		StorePath:          "/var/lib/corral",
		MetricsAddr:        ":9090",
	}
}

// Load reads and parses a YAML config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// configureKeyOrder is the fixed positional mapping of Sensors.OnConfigure
// entries onto the internal sensor keys conf_complete reads back:
// antenna list, stream descriptors, channel count, IP offset, and the
// active schedule block.
var configureKeyOrder = []string{
	types.SensorAntennas,
	types.SensorStreams,
	types.SensorNChannels,
	types.SensorIPOffset,
	types.SensorScheduleBlocks,
}

// cbfConfigureKeyOrder is the fixed positional mapping of
// Sensors.CBFOnConfigure entries onto the numeric CBF sensors
// conf_complete derives SYNCTIME/CHAN_BW/FECENTER/HNCHAN/HNTIME/HCLOCKS
// from.
var cbfConfigureKeyOrder = []string{
	types.SensorSyncTime,
	types.SensorADCSampleRate,
	types.SensorCentreFrequency,
	types.SensorChanPerSubstream,
	types.SensorSpectraPerHeap,
	types.SensorSamplesBetweenSpectra,
}

// MetadataConfig translates the YAML sensor-subscription lists into
// pkg/metadata's Config. When the config file specifies no sensor
// lists at all (the zero value, as Default returns), it falls back to
// metadata.DefaultConfig()'s built-in sensor set rather than leaving
// the fetcher with nothing to query. Sensors.StreamsOnConfigure is not
// mapped: its entries are neither queried nor subscribed to.
func (c *Config) MetadataConfig() metadata.Config {
	if c.sensorsEmpty() {
		cfg := metadata.DefaultConfig()
		cfg.WebsocketURL = c.WebsocketURL
		cfg.Retry = c.retryConfig()
		return cfg
	}

	queries := zipQueries(c.Sensors.OnConfigure, configureKeyOrder)
	queries = append(queries, zipQueries(c.Sensors.CBFOnConfigure, cbfConfigureKeyOrder)...)

	subscribe := make([]string, 0, len(c.Sensors.PerAntenna)+len(c.Sensors.CBF)+len(c.Sensors.Streams)+len(c.Sensors.Subarray))
	subscribe = append(subscribe, c.Sensors.PerAntenna...)
	subscribe = append(subscribe, c.Sensors.CBF...)
	subscribe = append(subscribe, c.Sensors.Streams...)
	subscribe = append(subscribe, c.Sensors.Subarray...)

	return metadata.Config{
		WebsocketURL:     c.WebsocketURL,
		ConfigureQueries: queries,
		SubscribeSensors: subscribe,
		Retry:            c.retryConfig(),
	}
}

func (c *Config) sensorsEmpty() bool {
	s := c.Sensors
	return len(s.PerAntenna) == 0 && len(s.CBF) == 0 && len(s.CBFOnConfigure) == 0 &&
		len(s.Streams) == 0 && len(s.StreamsOnConfigure) == 0 &&
		len(s.Subarray) == 0 && len(s.OnConfigure) == 0
}

func (c *Config) retryConfig() metadata.RetryConfig {
	if c.Retry.Attempts == 0 {
		return metadata.DefaultRetryConfig()
	}
	return metadata.RetryConfig{
		Attempts:    c.Retry.Attempts,
		BaseTimeout: time.Duration(c.Retry.BaseTimeout),
		Factor:      c.Retry.Factor,
	}
}

// zipQueries pairs names with keys positionally, truncating to the
// shorter of the two so a config file with too few or too many entries
// degrades gracefully rather than panicking.
func zipQueries(names []string, keys []string) []metadata.SensorQuery {
	n := len(names)
	if len(keys) < n {
		n = len(keys)
	}
	out := make([]metadata.SensorQuery, n)
	for i := 0; i < n; i++ {
		out[i] = metadata.SensorQuery{Name: names[i], StoreKey: keys[i]}
	}
	return out
}
