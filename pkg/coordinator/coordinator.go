package coordinator

import (
	"context"
	"strconv"
	"time"

	"github.com/meerkat-commensal/corral/pkg/eventbus"
	"github.com/meerkat-commensal/corral/pkg/log"
	"github.com/meerkat-commensal/corral/pkg/metrics"
	"github.com/meerkat-commensal/corral/pkg/types"
)

// Config holds the coordinator's tunables, sourced from pkg/config.
type Config struct {
	// GatewayDomain is the Hashpipe-Redis gateway domain, e.g. "bluse".
	GatewayDomain string
	// StreamsPerInstance is the per-node stream capacity S.
	StreamsPerInstance int
	// TotalNodes is the number of configured processing nodes
	// (hashpipe_instances), used by the stream plan builder as the group
	// count M independent of how many of those nodes currently sit in
	// the free pool.
	TotalNodes int
	// NotTrackingSettleDelay is the pause between DWELL=0/PKTSTART=0 and
	// restoring DWELL in the not-tracking handler. Exposed as a tunable
	// rather than a hardcoded 100ms sleep.
	NotTrackingSettleDelay time.Duration
}

// DefaultConfig returns the coordinator's defaults.
func DefaultConfig() Config {
	return Config{
		GatewayDomain:          "bluse",
		StreamsPerInstance:     4,
		TotalNodes:             4,
		NotTrackingSettleDelay: 100 * time.Millisecond,
	}
}

// Store is the subset of pkg/store the coordinator reads and writes.
type Store interface {
	FreeHosts() ([]string, error)
	AllocatedHosts(productID string) ([]string, error)
	Allocate(productID string, n int) ([]string, error)
	Release(productID string) ([]string, error)

	PutSubarray(sub *types.Subarray) error
	GetSubarray(productID string) (*types.Subarray, error)
	DeleteSubarray(productID string) error

	SetDefaultTriggerMode(mode types.TriggerMode) error
	DefaultTriggerMode() (types.TriggerMode, error)

	GetSensor(productID, sensorName string) (string, bool, error)
}

// HealthChecker is the subset of pkg/health the coordinator reads host
// status from.
type HealthChecker interface {
	ActivePktIdx(hosts []string) map[string]int64
	Dwell(host string) int
	DataDirRoot(host string) string
}

// GatewayPublisher is the subset of pkg/gateway the coordinator publishes
// parameters through.
type GatewayPublisher interface {
	PublishAll(hosts []string, key, value string) []error
}

// Notifier posts observation-lifecycle notifications to the chat
// proxy on tracking start and on deconfigure.
type Notifier interface {
	Notify(message string) error
}

// BusNotifier is a Notifier backed by an eventbus.Bus, publishing to a
// fixed subject the chat proxy listens on.
type BusNotifier struct {
	Bus     eventbus.Bus
	Subject string
}

// Notify publishes message to the configured subject.
func (n BusNotifier) Notify(message string) error {
	return n.Bus.Publish(n.Subject, []byte(message))
}

// Coordinator is the single-writer core that drives a subarray's
// recording lifecycle through Run's event loop.
type Coordinator struct {
	cfg      Config
	bus      eventbus.Bus
	store    Store
	health   HealthChecker
	gateway  GatewayPublisher
	notifier Notifier
}

// New constructs a Coordinator. triggerMode is the startup default
// trigger mode supplied by the -t/--triggermode flag.
func New(cfg Config, bus eventbus.Bus, store Store, checker HealthChecker, gw GatewayPublisher, notifier Notifier, triggerMode types.TriggerMode) (*Coordinator, error) {
	if err := store.SetDefaultTriggerMode(triggerMode); err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:      cfg,
		bus:      bus,
		store:    store,
		health:   checker,
		gateway:  gw,
		notifier: notifier,
	}, nil
}

// Run subscribes to the three event subjects and dispatches every
// message to its handler in arrival order until ctx is cancelled. A
// handler's own errors are logged and swallowed; only bus/subscribe
// failures are fatal. A bad event must never take the loop down with
// it while other subarrays are live.
func (c *Coordinator) Run(ctx context.Context) error {
	logger := log.WithComponent("coordinator")

	subs := make([]*eventbus.Subscription, 0, 3)
	for _, subject := range []string{SubjectLifecycle, SubjectSensor, SubjectTrigger} {
		sub, err := c.bus.Subscribe(subject)
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	merged := make(chan eventbus.Msg)
	for _, sub := range subs {
		go func(s *eventbus.Subscription) {
			for msg := range s.C {
				select {
				case merged <- msg:
				case <-ctx.Done():
					return
				}
			}
		}(sub)
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("coordinator stopping")
			return nil
		case msg := <-merged:
			c.dispatch(msg)
		}
	}
}

func (c *Coordinator) dispatch(msg eventbus.Msg) {
	event, err := ParseEvent(string(msg.Data))
	if err != nil {
		logger := log.WithComponent("coordinator")
		logger.Warn().Str("subject", msg.Subject).Str("raw", string(msg.Data)).Msg("malformed event, skipping")
		metrics.EventsDroppedTotal.WithLabelValues("unknown", "malformed").Inc()
		return
	}

	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.EventHandleDuration, event.Kind.String())
	metrics.EventsReceivedTotal.WithLabelValues(event.Kind.String()).Inc()

	logger := log.WithProductID(event.ProductID)

	var handleErr error
	switch event.Kind {
	case types.KindConfComplete:
		handleErr = c.handleConfComplete(event.ProductID)
	case types.KindDeconfigure:
		handleErr = c.handleDeconfigure(event.ProductID)
	case types.KindTracking:
		handleErr = c.handleTracking(event.ProductID)
	case types.KindNotTracking:
		handleErr = c.handleNotTracking(event.ProductID)
	case types.KindDataSuspect:
		handleErr = c.handleDataSuspect(event.ProductID, event.Mask)
	case types.KindPointing:
		handleErr = c.handlePointing(event.ProductID, event.Axis, event.Value)
	case types.KindTriggerMode:
		handleErr = c.handleTriggerModeChange(event.Value)
	default:
		logger.Debug().Str("subject", msg.Subject).Msg("unrecognized event type, skipping")
		return
	}

	if handleErr != nil {
		logger.Error().Err(handleErr).Str("kind", event.Kind.String()).Msg("handler failed")
		metrics.EventsDroppedTotal.WithLabelValues(event.Kind.String(), "handler_error").Inc()
	}
}

func parseIntSensor(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloatSensor(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
