package coordinator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meerkat-commensal/corral/pkg/log"
	"github.com/meerkat-commensal/corral/pkg/metrics"
	"github.com/meerkat-commensal/corral/pkg/startindex"
	"github.com/meerkat-commensal/corral/pkg/streamplan"
	"github.com/meerkat-commensal/corral/pkg/target"
	"github.com/meerkat-commensal/corral/pkg/types"
)

// handleConfComplete builds a new subarray record from the metadata
// fetcher's cached sensor snapshots, allocates processing nodes, and
// publishes the full configure-time gateway parameter set to each.
func (c *Coordinator) handleConfComplete(productID string) error {
	logger := log.WithProductID(productID)
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.AllocationLatency)

	sub := &types.Subarray{
		ProductID: productID,
		CreatedAt: time.Now(),
	}

	if raw, found, err := c.store.GetSensor(productID, types.SensorAntennas); err == nil && found {
		sub.Antennas = splitCSV(raw)
	} else {
		logger.Warn().Msg("antennas sensor missing on conf_complete")
	}

	if raw, found, err := c.store.GetSensor(productID, types.SensorNChannels); err == nil && found {
		sub.NChannels, _ = parseIntSensor(raw)
	} else {
		logger.Warn().Msg("n_channels sensor missing on conf_complete")
	}

	if raw, found, err := c.store.GetSensor(productID, types.SensorIPOffset); err == nil && found {
		sub.IPOffset, _ = parseIntSensor(raw)
	}

	streams := map[string]map[string]string{}
	if raw, found, err := c.store.GetSensor(productID, types.SensorStreams); err == nil && found {
		if err := json.Unmarshal([]byte(raw), &streams); err != nil {
			logger.Warn().Err(err).Msg("malformed streams sensor snapshot")
		}
	}
	sub.Streams = streams

	if raw, found, err := c.store.GetSensor(productID, types.SensorScheduleBlocks); err == nil && found {
		sub.ScheduleBlocks = splitCSV(raw)
	}

	defaultMode, err := c.store.DefaultTriggerMode()
	if err != nil {
		return fmt.Errorf("read default trigger mode: %w", err)
	}
	sub.TriggerMode = defaultMode
	sub.Tracking = false

	url, ok := streamURL(streams)
	if !ok {
		logger.Warn().Msg("no wideband stream descriptor available; skipping stream plan")
		if err := c.store.PutSubarray(sub); err != nil {
			return fmt.Errorf("persist subarray: %w", err)
		}
		logger.Info().Msg("new subarray built (no streams to allocate)")
		return nil
	}

	plan, err := streamplan.BuildPlan(url, c.cfg.TotalNodes, c.cfg.StreamsPerInstance, sub.IPOffset)
	if err != nil {
		return fmt.Errorf("build stream plan: %w", err)
	}
	if plan.Dropped > 0 {
		logger.Warn().Int("dropped", plan.Dropped).Msg("too many streams for configured node capacity")
	}

	allocated, err := c.store.Allocate(productID, len(plan.Groups))
	if err != nil {
		return fmt.Errorf("allocate hosts: %w", err)
	}
	if len(allocated) < len(plan.Groups) {
		metrics.AllocationsFailedTotal.Inc()
		logger.Warn().Int("requested", len(plan.Groups)).Int("allocated", len(allocated)).
			Msg("insufficient resources for full band; proceeding with partial-band recording")
	}
	syncTime, _, _ := c.store.GetSensor(productID, types.SensorSyncTime)
	adcSampleRate, _, _ := c.store.GetSensor(productID, types.SensorADCSampleRate)
	centreFreq, _, _ := c.store.GetSensor(productID, types.SensorCentreFrequency)
	hnchanRaw, _, _ := c.store.GetSensor(productID, types.SensorChanPerSubstream)
	hntimeRaw, _, _ := c.store.GetSensor(productID, types.SensorSpectraPerHeap)
	samplesBetween, _, _ := c.store.GetSensor(productID, types.SensorSamplesBetweenSpectra)

	hnchan, _ := parseIntSensor(hnchanRaw)
	hntime, _ := parseIntSensor(hntimeRaw)
	samplesBetweenN, _ := parseIntSensor(samplesBetween)
	hclocks := samplesBetweenN * hntime

	chanBW := ""
	if adcHz, ok := parseFloatSensor(adcSampleRate); ok && sub.NChannels > 0 {
		chanBW = formatFloat17(adcHz / 2.0 / float64(sub.NChannels) / 1e6)
	}
	fecenter := ""
	if freqHz, ok := parseFloatSensor(centreFreq); ok {
		fecenter = formatFloat17(freqHz / 1e6)
	}
	syncTimeInt := ""
	if f, ok := parseFloatSensor(syncTime); ok {
		syncTimeInt = strconv.Itoa(int(f))
	}

	for i, host := range allocated {
		if i >= len(plan.Groups) {
			break
		}
		group := plan.Groups[i]
		params := map[string]string{
			"BINDPORT": plan.Port,
			"FENSTRM":  strconv.Itoa(plan.TotalAddrs),
			"SYNCTIME": syncTimeInt,
			"FECENTER": fecenter,
			"FENCHAN":  strconv.Itoa(sub.NChannels),
			"CHAN_BW":  chanBW,
			"HNCHAN":   strconv.Itoa(hnchan),
			"HNTIME":   strconv.Itoa(hntime),
			"HCLOCKS":  strconv.Itoa(hclocks),
			"NANTS":    strconv.Itoa(len(sub.Antennas)),
			"PKTSTART": "0",
			"NSTRM":    strconv.Itoa(group.NAddrs()),
			"SCHAN":    strconv.Itoa(plan.SChan(i, sub.IPOffset, hnchan)),
			"DESTIP":   group.Descriptor(),
		}
		for _, key := range confCompleteKeyOrder {
			if errs := c.gateway.PublishAll([]string{host}, key, params[key]); len(errs) > 0 {
				logger.Warn().Err(errs[0]).Str("host", host).Str("key", key).Msg("gateway publish failed")
			}
		}
	}

	if err := c.store.PutSubarray(sub); err != nil {
		return fmt.Errorf("persist subarray: %w", err)
	}
	logger.Info().Int("allocated", len(allocated)).Msg("new subarray built")
	return nil
}

// confCompleteKeyOrder fixes the publish order for conf_complete's
// parameter set; order does not affect correctness here (unlike
// tracking's metadata-before-PKTSTART rule) but keeping it stable makes
// gateway traces easier to read.
var confCompleteKeyOrder = []string{
	"BINDPORT", "FENSTRM", "SYNCTIME", "FECENTER", "FENCHAN", "CHAN_BW",
	"HNCHAN", "HNTIME", "HCLOCKS", "NANTS", "PKTSTART", "NSTRM", "SCHAN", "DESTIP",
}

// handleTracking issues the synchronized recording start for a subarray
// newly on-source, guarded to only fire on the false-to-true edge and
// only when the trigger mode permits it.
func (c *Coordinator) handleTracking(productID string) error {
	logger := log.WithProductID(productID)

	sub, err := c.store.GetSubarray(productID)
	if err != nil {
		return fmt.Errorf("load subarray: %w", err)
	}
	if sub.Tracking || sub.TriggerMode == types.TriggerModeIdle {
		return nil
	}

	allocated, err := c.store.AllocatedHosts(productID)
	if err != nil {
		return fmt.Errorf("load allocated hosts: %w", err)
	}
	if len(allocated) == 0 {
		logger.Warn().Msg("tracking event for subarray with no allocated hosts")
		return nil
	}

	rawTarget, _, _ := c.store.GetSensor(productID, types.SensorTarget)
	name, ra, dec := target.Format(rawTarget)

	scheduleCSV, _, _ := c.store.GetSensor(productID, types.SensorScheduleBlocks)
	dataDir := "/" + c.health.DataDirRoot(allocated[0]) + "/" + dataDirPath(scheduleCSV)

	for _, host := range allocated {
		for _, kv := range [][2]string{
			{"DATADIR", dataDir},
			{"SRC_NAME", name},
			{"RA_STR", ra},
			{"DEC_STR", dec},
		} {
			if errs := c.gateway.PublishAll([]string{host}, kv[0], kv[1]); len(errs) > 0 {
				logger.Warn().Err(errs[0]).Str("host", host).Str("key", kv[0]).Msg("gateway publish failed")
			}
		}
	}

	// PKTSTART is computed and issued strictly after the metadata above:
	// the node must have DATADIR and the source fields before the start
	// trigger arrives.
	timer := metrics.NewTimer()
	result, err := startindex.Select(c.health.ActivePktIdx(allocated), startindex.DefaultMargin)
	timer.ObserveDuration(metrics.PktStartLatency)
	switch {
	case err == startindex.ErrNoActiveHosts:
		logger.Warn().Msg("no active processing nodes reported a packet index; skipping PKTSTART")
	case err != nil:
		return fmt.Errorf("select start index: %w", err)
	default:
		if len(result.Outliers) > 0 {
			metrics.PktStartOutliersTotal.Add(float64(len(result.Outliers)))
			logger.Warn().Strs("outliers", result.Outliers).Bool("large_spread", result.LargeSpread).
				Msg("PKTIDX outliers discarded when computing PKTSTART")
		}
		pktStart := strconv.FormatInt(result.PktStart, 10)
		for _, host := range allocated {
			if errs := c.gateway.PublishAll([]string{host}, "PKTSTART", pktStart); len(errs) > 0 {
				logger.Warn().Err(errs[0]).Str("host", host).Msg("PKTSTART publish failed")
			}
		}
	}

	if err := c.notifier.Notify(fmt.Sprintf("meerkat:: New recording started for %s!", productID)); err != nil {
		logger.Warn().Err(err).Msg("tracking-start notification failed")
	}

	sub.TriggerMode = nextTriggerMode(sub.TriggerMode)
	sub.Tracking = true
	sub.LastCaptureStart = time.Now()
	sub.UpdatedAt = time.Now()
	if err := c.store.PutSubarray(sub); err != nil {
		return fmt.Errorf("persist subarray: %w", err)
	}
	return nil
}

// handleNotTracking aborts an in-progress recording by briefly zeroing
// DWELL and PKTSTART, guarded to only fire on the true-to-false edge.
func (c *Coordinator) handleNotTracking(productID string) error {
	logger := log.WithProductID(productID)

	sub, err := c.store.GetSubarray(productID)
	if err != nil {
		return fmt.Errorf("load subarray: %w", err)
	}
	if !sub.Tracking {
		return nil
	}

	allocated, err := c.store.AllocatedHosts(productID)
	if err != nil {
		return fmt.Errorf("load allocated hosts: %w", err)
	}

	for _, host := range allocated {
		dwell := c.health.Dwell(host)
		if errs := c.gateway.PublishAll([]string{host}, "DWELL", "0"); len(errs) > 0 {
			logger.Warn().Err(errs[0]).Str("host", host).Msg("DWELL=0 publish failed")
		}
		if errs := c.gateway.PublishAll([]string{host}, "PKTSTART", "0"); len(errs) > 0 {
			logger.Warn().Err(errs[0]).Str("host", host).Msg("PKTSTART=0 publish failed")
		}
		time.Sleep(c.cfg.NotTrackingSettleDelay)
		if errs := c.gateway.PublishAll([]string{host}, "DWELL", strconv.Itoa(dwell)); len(errs) > 0 {
			logger.Warn().Err(errs[0]).Str("host", host).Msg("DWELL restore publish failed")
		}
	}

	sub.Tracking = false
	sub.UpdatedAt = time.Now()
	if err := c.store.PutSubarray(sub); err != nil {
		return fmt.Errorf("persist subarray: %w", err)
	}
	return nil
}

// handleDeconfigure releases a subarray's processing nodes and removes
// its state, instructing every allocated host to leave its multicast
// group first.
func (c *Coordinator) handleDeconfigure(productID string) error {
	logger := log.WithProductID(productID)

	allocated, err := c.store.AllocatedHosts(productID)
	if err != nil {
		return fmt.Errorf("load allocated hosts: %w", err)
	}

	if errs := c.gateway.PublishAll(allocated, "DESTIP", "0.0.0.0"); len(errs) > 0 {
		logger.Warn().Int("failures", len(errs)).Msg("some DESTIP=0.0.0.0 publishes failed")
	}

	released, err := c.store.Release(productID)
	if err != nil {
		return fmt.Errorf("release hosts: %w", err)
	}
	metrics.HostsReleasedTotal.Add(float64(len(released)))

	if err := c.store.DeleteSubarray(productID); err != nil {
		return fmt.Errorf("delete subarray record: %w", err)
	}

	if err := c.notifier.Notify(fmt.Sprintf("meerkat:: %s deconfigured", productID)); err != nil {
		logger.Warn().Err(err).Msg("deconfigure notification failed")
	}

	logger.Info().Int("released", len(released)).Msg("subarray deconfigured")
	return nil
}

// handleDataSuspect republishes the data-suspect bitmask to every
// allocated host as a hex-encoded FESTATUS value.
func (c *Coordinator) handleDataSuspect(productID, mask string) error {
	allocated, err := c.store.AllocatedHosts(productID)
	if err != nil {
		return fmt.Errorf("load allocated hosts: %w", err)
	}

	hex, err := formatBitmask(mask)
	if err != nil {
		return err
	}

	if errs := c.gateway.PublishAll(allocated, "FESTATUS", hex); len(errs) > 0 {
		logger := log.WithProductID(productID)
		logger.Warn().Int("failures", len(errs)).Msg("some FESTATUS publishes failed")
	}
	return nil
}

// handlePointing republishes a single pointing-axis update (RA, Dec,
// azimuth, or elevation) to every allocated host.
func (c *Coordinator) handlePointing(productID string, axis types.PointingAxis, value string) error {
	allocated, err := c.store.AllocatedHosts(productID)
	if err != nil {
		return fmt.Errorf("load allocated hosts: %w", err)
	}

	var key, out string
	switch axis {
	case types.PointingDec:
		key, out = "DEC", value
	case types.PointingRA:
		key = "RA"
		if hours, ok := parseFloatSensor(value); ok {
			out = formatFloat17(hours * 15.0)
		} else {
			out = value
		}
	case types.PointingAzim:
		key, out = "AZ", value
	case types.PointingElev:
		key, out = "EL", value
	default:
		return nil
	}

	if errs := c.gateway.PublishAll(allocated, key, out); len(errs) > 0 {
		logger := log.WithProductID(productID)
		logger.Warn().Int("failures", len(errs)).Msg("pointing update publish failed")
	}
	return nil
}

// handleTriggerModeChange overwrites the global default trigger mode
// applied to subsequently configured subarrays.
func (c *Coordinator) handleTriggerModeChange(value string) error {
	mode, err := types.ParseTriggerMode(value)
	if err != nil {
		return err
	}
	if err := c.store.SetDefaultTriggerMode(mode); err != nil {
		return fmt.Errorf("persist default trigger mode: %w", err)
	}
	logger := log.WithComponent("coordinator")
	logger.Info().Str("trigger_mode", value).Msg("default trigger mode changed")
	return nil
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
