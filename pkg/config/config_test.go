package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meerkat-commensal/corral/pkg/types"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func yamlScalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

const sampleYAML = `
processing_nodes:
  - blpn0
  - blpn1
streams_per_instance: 4
gateway_domain: bluse
nats_url: nats://nats.example:4222
websocket_url: ws://portal.example/ws
sensors:
  on_configure:
    - "<product_id>_antennas"
    - "<product_id>_streams"
    - "<product_id>_n_chans"
  cbf_on_configure:
    - "<product_id>_cbf_1_sync_time"
  per_antenna:
    - "m*_activity"
  subarray:
    - "<product_id>_script_status"
retry:
  attempts: 5
  base_timeout: 3s
  factor: 2.0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corral.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	require.Equal(t, []string{"blpn0", "blpn1"}, cfg.ProcessingNodes)
	require.Equal(t, 4, cfg.StreamsPerInstance)
	require.Equal(t, "nats://nats.example:4222", cfg.NATSURL)
	require.Equal(t, 5, cfg.Retry.Attempts)
	require.Equal(t, 3*time.Second, time.Duration(cfg.Retry.BaseTimeout))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/corral.yaml")
	require.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "processing_nodes: [unterminated"))
	require.Error(t, err)
}

func TestMetadataConfig_MapsSensorListsPositionally(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	mc := cfg.MetadataConfig()
	require.Equal(t, "ws://portal.example/ws", mc.WebsocketURL)
	require.Equal(t, 5, mc.Retry.Attempts)

	require.Len(t, mc.ConfigureQueries, 4)
	require.Equal(t, types.SensorAntennas, mc.ConfigureQueries[0].StoreKey)
	require.Equal(t, types.SensorNChannels, mc.ConfigureQueries[2].StoreKey)
	require.Equal(t, types.SensorSyncTime, mc.ConfigureQueries[3].StoreKey)

	require.Equal(t, []string{"m*_activity", "<product_id>_script_status"}, mc.SubscribeSensors)
}

func TestMetadataConfig_EmptySensorsFallsBackToDefaults(t *testing.T) {
	cfg := Default()
	mc := cfg.MetadataConfig()
	require.NotEmpty(t, mc.ConfigureQueries)
	require.NotEmpty(t, mc.SubscribeSensors)
	require.Equal(t, cfg.WebsocketURL, mc.WebsocketURL)
}

func TestDuration_RejectsMalformed(t *testing.T) {
	var d Duration
	require.Error(t, (&d).UnmarshalYAML(yamlScalar("not-a-duration")))
}
