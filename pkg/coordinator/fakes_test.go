package coordinator

import (
	"fmt"

	"github.com/meerkat-commensal/corral/pkg/types"
)

// fakeStore is an in-memory stand-in for pkg/store with the same
// allocate-from-front/release-to-back semantics, so handler tests don't
// need a BoltDB file on disk.
type fakeStore struct {
	free        []string
	allocated   map[string][]string
	subarrays   map[string]*types.Subarray
	defaultMode types.TriggerMode
	sensors     map[string]string
}

func newFakeStore(hosts ...string) *fakeStore {
	return &fakeStore{
		free:        append([]string(nil), hosts...),
		allocated:   map[string][]string{},
		subarrays:   map[string]*types.Subarray{},
		defaultMode: types.TriggerModeIdle,
		sensors:     map[string]string{},
	}
}

func (f *fakeStore) setSensor(productID, name, value string) {
	f.sensors[productID+":"+name] = value
}

func (f *fakeStore) FreeHosts() ([]string, error) {
	return append([]string(nil), f.free...), nil
}

func (f *fakeStore) AllocatedHosts(productID string) ([]string, error) {
	return append([]string(nil), f.allocated[productID]...), nil
}

func (f *fakeStore) Allocate(productID string, n int) ([]string, error) {
	take := n
	if take > len(f.free) {
		take = len(f.free)
	}
	allocated := append([]string(nil), f.free[:take]...)
	f.free = append([]string(nil), f.free[take:]...)
	f.allocated[productID] = allocated
	return allocated, nil
}

func (f *fakeStore) Release(productID string) ([]string, error) {
	released := f.allocated[productID]
	if len(released) == 0 {
		return nil, nil
	}
	f.free = append(f.free, released...)
	delete(f.allocated, productID)
	return released, nil
}

func (f *fakeStore) PutSubarray(sub *types.Subarray) error {
	cp := *sub
	f.subarrays[sub.ProductID] = &cp
	return nil
}

func (f *fakeStore) GetSubarray(productID string) (*types.Subarray, error) {
	sub, ok := f.subarrays[productID]
	if !ok {
		return nil, fmt.Errorf("subarray not found: %s", productID)
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeStore) DeleteSubarray(productID string) error {
	delete(f.subarrays, productID)
	return nil
}

func (f *fakeStore) SetDefaultTriggerMode(mode types.TriggerMode) error {
	f.defaultMode = mode
	return nil
}

func (f *fakeStore) DefaultTriggerMode() (types.TriggerMode, error) {
	return f.defaultMode, nil
}

func (f *fakeStore) GetSensor(productID, sensorName string) (string, bool, error) {
	v, ok := f.sensors[productID+":"+sensorName]
	return v, ok, nil
}

// fakeHealth is a HealthChecker stand-in reading from in-memory host
// status rather than a store-backed status hash.
type fakeHealth struct {
	pktIdx     map[string]int64
	active     map[string]bool
	dwell      map[string]int
	dataDirs   map[string]string
	defaultDir string
}

func newFakeHealth() *fakeHealth {
	return &fakeHealth{
		pktIdx:     map[string]int64{},
		active:     map[string]bool{},
		dwell:      map[string]int{},
		dataDirs:   map[string]string{},
		defaultDir: "buf0",
	}
}

func (f *fakeHealth) setActive(host string, pktIdx int64) {
	f.active[host] = true
	f.pktIdx[host] = pktIdx
}

func (f *fakeHealth) ActivePktIdx(hosts []string) map[string]int64 {
	out := map[string]int64{}
	for _, h := range hosts {
		if f.active[h] {
			out[h] = f.pktIdx[h]
		}
	}
	return out
}

func (f *fakeHealth) Dwell(host string) int {
	return f.dwell[host]
}

func (f *fakeHealth) DataDirRoot(host string) string {
	if dir, ok := f.dataDirs[host]; ok {
		return dir
	}
	return f.defaultDir
}

// publishRecord captures one gateway publish for sequence assertions.
type publishRecord struct {
	host, key, value string
}

// fakeGateway is a GatewayPublisher stand-in recording every publish in
// call order, so tests can assert both the values sent and the
// ordering requirement (metadata strictly before PKTSTART, etc).
type fakeGateway struct {
	records []publishRecord
}

func (f *fakeGateway) PublishAll(hosts []string, key, value string) []error {
	for _, h := range hosts {
		f.records = append(f.records, publishRecord{host: h, key: key, value: value})
	}
	return nil
}

func (f *fakeGateway) valuesFor(host, key string) []string {
	var out []string
	for _, r := range f.records {
		if r.host == host && r.key == key {
			out = append(out, r.value)
		}
	}
	return out
}

func (f *fakeGateway) indexOf(host, key, value string) int {
	for i, r := range f.records {
		if r.host == host && r.key == key && r.value == value {
			return i
		}
	}
	return -1
}

// fakeNotifier records chat-proxy notifications.
type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(message string) error {
	f.messages = append(f.messages, message)
	return nil
}
