package metadata

import (
	"context"
	"strings"
	"sync"

	"github.com/meerkat-commensal/corral/pkg/coordinator"
	"github.com/meerkat-commensal/corral/pkg/eventbus"
	"github.com/meerkat-commensal/corral/pkg/log"
	"github.com/meerkat-commensal/corral/pkg/metrics"
	"github.com/meerkat-commensal/corral/pkg/types"
	"github.com/rs/zerolog"
)

// SensorQuery is one configure-time one-shot query: a CAM sensor name
// pattern (with "<product_id>" substituted per subarray) and the
// internal key the result is cached under, read back later via
// Store.GetSensor/types.Sensor* in pkg/coordinator.
type SensorQuery struct {
	Name     string
	StoreKey string
}

// Config holds the metadata fetcher's tunables, sourced from
// pkg/config's sensor-subscription lists.
type Config struct {
	WebsocketURL     string
	ConfigureQueries []SensorQuery
	SubscribeSensors []string
	Retry            RetryConfig
}

// DefaultConfig returns a sensor set covering every value the
// coordinator's conf_complete and tracking handlers read back out of
// the store.
func DefaultConfig() Config {
	return Config{
		ConfigureQueries: []SensorQuery{
			{Name: "<product_id>_antennas", StoreKey: types.SensorAntennas},
			{Name: "<product_id>_streams", StoreKey: types.SensorStreams},
			{Name: "<product_id>_n_chans", StoreKey: types.SensorNChannels},
			{Name: "<product_id>_ip_offset", StoreKey: types.SensorIPOffset},
			{Name: "<product_id>_cbf_1_sync_time", StoreKey: types.SensorSyncTime},
			{Name: "<product_id>_cbf_1_adc_sample_rate", StoreKey: types.SensorADCSampleRate},
			{Name: "<product_id>_cbf_1_centre_frequency", StoreKey: types.SensorCentreFrequency},
			{Name: "<product_id>_cbf_1_n_chans_per_substream", StoreKey: types.SensorChanPerSubstream},
			{Name: "<product_id>_cbf_1_spectra_per_heap", StoreKey: types.SensorSpectraPerHeap},
			{Name: "<product_id>_cbf_1_n_samples_between_spectra", StoreKey: types.SensorSamplesBetweenSpectra},
			{Name: "<product_id>_sched_observation_schedule_1", StoreKey: types.SensorScheduleBlocks},
		},
		SubscribeSensors: []string{
			"<product_id>_cbf_1_data_suspect",
			"<product_id>_script_status",
			"<product_id>_target",
			"m*_pos_request_base_ra",
			"m*_pos_request_base_dec",
			"m*_pos_request_base_azim",
			"m*_pos_request_base_elev",
			"m*_activity",
		},
		Retry: DefaultRetryConfig(),
	}
}

// Fetcher reacts to configure/deconfigure lifecycle alerts by opening
// or tearing down one websocket session per subarray. It holds no
// allocation state of its own - everything it learns goes through
// Store and eventbus.Bus, the same boundary the coordinator is held
// to.
type Fetcher struct {
	cfg      Config
	dialer   Dialer
	store    Store
	bus      eventbus.Bus
	sessions sync.Map // product_id -> context.CancelFunc
	logger   zerolog.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(cfg Config, dialer Dialer, store Store, bus eventbus.Bus) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		dialer: dialer,
		store:  store,
		bus:    bus,
		logger: log.WithComponent("metadata"),
	}
}

// Run subscribes to lifecycle-alerts and manages one session per
// subarray until ctx is cancelled, at which point every open session is
// torn down.
func (f *Fetcher) Run(ctx context.Context) error {
	sub, err := f.bus.Subscribe(coordinator.SubjectLifecycle)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	f.logger.Info().Msg("metadata fetcher started")

	for {
		select {
		case <-ctx.Done():
			f.stopAll()
			f.logger.Info().Msg("metadata fetcher stopping")
			return nil
		case msg := <-sub.C:
			f.handleLifecycle(ctx, string(msg.Data))
		}
	}
}

func (f *Fetcher) handleLifecycle(ctx context.Context, raw string) {
	typ, productID, ok := splitLifecycle(raw)
	if !ok {
		return
	}
	switch typ {
	case "configure":
		f.startSession(ctx, productID)
	case "deconfigure":
		f.stopSession(productID)
	}
}

// splitLifecycle splits a lifecycle-alerts payload into its type and
// product_id, tolerating the three-field conf_complete form by keeping
// only the first colon split (the fetcher only acts on "configure" and
// "deconfigure").
func splitLifecycle(raw string) (typ, productID string, ok bool) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// startSession opens a new websocket session for productID, unless one
// is already running (a second "configure" for a live subarray is
// treated as a duplicate, not a restart).
func (f *Fetcher) startSession(ctx context.Context, productID string) {
	if _, exists := f.sessions.Load(productID); exists {
		f.logger.Warn().Str("product_id", productID).Msg("configure received for subarray with an active session; ignoring")
		return
	}

	var conn Conn
	attempt := 0
	err := Retry(ctx, f.cfg.Retry, func(context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.WebsocketReconnectsTotal.Inc()
		}
		var dialErr error
		conn, dialErr = f.dialer.Dial(f.cfg.WebsocketURL)
		return dialErr
	})
	if err != nil {
		f.logger.Error().Err(err).Str("product_id", productID).Msg("failed to connect to sensor websocket")
		return
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	f.sessions.Store(productID, cancel)

	sess := newSession(productID, conn, f.cfg, f.store, f.bus)
	go func() {
		defer conn.Close()
		defer f.sessions.Delete(productID)
		sess.run(sessionCtx)
	}()
}

// stopSession tears down productID's session, if one is running.
func (f *Fetcher) stopSession(productID string) {
	v, ok := f.sessions.LoadAndDelete(productID)
	if !ok {
		return
	}
	v.(context.CancelFunc)()
}

func (f *Fetcher) stopAll() {
	f.sessions.Range(func(key, value any) bool {
		value.(context.CancelFunc)()
		return true
	})
}
