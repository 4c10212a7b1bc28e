package types

// Sensor snapshot keys under which the metadata fetcher (pkg/metadata)
// caches configure-time values and the coordinator (pkg/coordinator)
// reads them back, via Store.PutSensor/GetSensor keyed by
// "<product_id>:<name>". These are short, stable names the metadata
// fetcher normalizes its CAM sensor queries into; the coordinator never
// resolves a CAM sensor name itself.
const (
	SensorAntennas              = "antennas"
	SensorStreams               = "streams"
	SensorNChannels             = "n_channels"
	SensorIPOffset              = "ip_offset"
	SensorSyncTime              = "sync_time"
	SensorADCSampleRate         = "adc_sample_rate"
	SensorCentreFrequency       = "centre_frequency"
	SensorChanPerSubstream      = "chan_per_substream"
	SensorSpectraPerHeap        = "spectra_per_heap"
	SensorSamplesBetweenSpectra = "samples_between_spectra"
	SensorScheduleBlocks        = "sched_observation_schedule_1"
	SensorTarget                = "target"
)

// StreamType and FengType select the stream descriptor this coordinator
// records: the wideband antenna-channelised-voltage F-engine output.
const (
	StreamType = "cbf.antenna_channelised_voltage"
	FengType   = "wide.antenna-channelised-voltage"
)
