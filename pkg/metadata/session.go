package metadata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meerkat-commensal/corral/pkg/coordinator"
	"github.com/meerkat-commensal/corral/pkg/eventbus"
	"github.com/meerkat-commensal/corral/pkg/log"
	"github.com/meerkat-commensal/corral/pkg/metrics"
	"github.com/meerkat-commensal/corral/pkg/types"
	"github.com/rs/zerolog"
)

// Store is the subset of pkg/store the metadata fetcher reads and
// writes.
type Store interface {
	PutSensor(productID, name, value string) error
	GetSubarray(productID string) (*types.Subarray, error)
	PutSubarray(sub *types.Subarray) error
}

// session owns one subarray's websocket connection: the one-shot
// configure-time sensor queries, followed by the continuous-update
// subscription loop.
type session struct {
	productID string
	sessionID string
	conn      Conn
	cfg       Config
	store     Store
	bus       eventbus.Bus
	logger    zerolog.Logger
}

// newSession tags each session with a fresh UUID so a subarray that is
// reconfigured mid-run (deconfigure racing a new configure) leaves
// distinguishable log lines behind rather than two streams both
// labeled only by product_id.
func newSession(productID string, conn Conn, cfg Config, store Store, bus eventbus.Bus) *session {
	sessionID := uuid.New().String()
	return &session{
		productID: productID,
		sessionID: sessionID,
		conn:      conn,
		cfg:       cfg,
		store:     store,
		bus:       bus,
		logger:    log.WithProductID(productID).With().Str("session_id", sessionID).Logger(),
	}
}

// run drives the session to completion: configure-time queries, then the
// subscribe loop, until ctx is cancelled or the API unsubscribes us
// (script_status leaves "busy"). The caller is responsible for closing
// conn after run returns.
func (s *session) run(ctx context.Context) {
	s.fetchConfigureSensors(ctx)

	if err := s.bus.Publish(coordinator.SubjectLifecycle, []byte("conf_complete:"+s.productID)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish conf_complete")
	}

	s.subscribeLoop(ctx)
}

// fetchConfigureSensors runs every configured one-shot query with
// bounded retries, caching whatever succeeds and logging (not aborting
// on) whatever doesn't; conf_complete proceeds with whatever subset of
// sensors answered.
func (s *session) fetchConfigureSensors(ctx context.Context) {
	for _, q := range s.cfg.ConfigureQueries {
		name := resolveName(q.Name, s.productID)

		var reply sensorReply
		err := Retry(ctx, s.cfg.Retry, func(attemptCtx context.Context) error {
			if dl, ok := attemptCtx.Deadline(); ok {
				if err := s.conn.SetReadDeadline(dl); err != nil {
					return err
				}
			}
			if err := s.conn.WriteJSON(sensorQuery{Type: "sensor-value", Name: name}); err != nil {
				return fmt.Errorf("query %s: %w", name, err)
			}
			return s.conn.ReadJSON(&reply)
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("sensor", name).Msg("sensor query exhausted retries; continuing without it")
			continue
		}

		if err := s.store.PutSensor(s.productID, q.StoreKey, reply.Value); err != nil {
			s.logger.Warn().Err(err).Str("sensor", name).Msg("failed to cache sensor snapshot")
		}
	}
}

// subscribeLoop asks the API to push continuous updates for the
// configured sensor set and republishes each onto sensor-alerts after
// classification, until the connection closes, ctx is cancelled, or a
// script_status update takes the subarray out of "busy".
func (s *session) subscribeLoop(ctx context.Context) {
	names := make([]string, len(s.cfg.SubscribeSensors))
	for i, pattern := range s.cfg.SubscribeSensors {
		names[i] = resolveName(pattern, s.productID)
	}

	if err := s.conn.WriteJSON(subscribeRequest{Type: "subscribe", Sensors: names}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to subscribe to continuous sensor updates")
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.conn.Close()
		case <-done:
		}
	}()

	_ = s.conn.SetReadDeadline(time.Time{})
	for {
		var upd sensorUpdate
		if err := s.conn.ReadJSON(&upd); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn().Err(err).Msg("websocket read failed; ending session")
			return
		}
		if s.handleUpdate(upd) {
			return
		}
	}
}

// handleUpdate classifies and reacts to one pushed sensor update,
// returning true when the session should end (script_status left
// "busy").
func (s *session) handleUpdate(upd sensorUpdate) bool {
	action := classify(upd.Name, upd.Value, upd.Status)

	switch action.Kind {
	case updateUnsubscribe:
		s.logger.Info().Str("sensor", upd.Name).Msg("script_status left busy; unsubscribing")
		return true
	case updateNone:
		return false
	}

	metrics.SensorUpdatesTotal.WithLabelValues(classificationLabel(action.Kind)).Inc()

	if action.Kind == updateTarget {
		if err := s.store.PutSensor(s.productID, types.SensorTarget, action.Value); err != nil {
			s.logger.Warn().Err(err).Msg("failed to cache target sensor")
		}
		s.touchLastTarget()
	}

	wire, ok := action.payload(s.productID)
	if !ok {
		return false
	}
	if err := s.bus.Publish(coordinator.SubjectSensor, []byte(wire)); err != nil {
		s.logger.Warn().Err(err).Str("wire", wire).Msg("failed to publish sensor update")
	}
	return false
}

// touchLastTarget updates the subarray's last-target timestamp, a
// best-effort operation: the subarray record may not exist yet if the
// target update races conf_complete, in which case there's nothing to
// touch and the caller's own conf_complete-driven fields take over.
func (s *session) touchLastTarget() {
	sub, err := s.store.GetSubarray(s.productID)
	if err != nil {
		return
	}
	sub.LastTarget = time.Now()
	if err := s.store.PutSubarray(sub); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist last-target timestamp")
	}
}

func classificationLabel(k updateKind) string {
	switch k {
	case updateDataSuspect:
		return "data_suspect"
	case updateTracking:
		return "tracking"
	case updateNotTracking:
		return "not_tracking"
	case updatePosRequestBase:
		return "pos_request_base"
	case updateTarget:
		return "target"
	default:
		return "unknown"
	}
}

// resolveName substitutes the "<product_id>" placeholder in a configured
// sensor name pattern.
func resolveName(pattern, productID string) string {
	return strings.ReplaceAll(pattern, "<product_id>", productID)
}
