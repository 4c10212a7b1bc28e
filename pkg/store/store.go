// Package store persists the coordinator's shared state in a single
// embedded BoltDB file: the free host pool, per-subarray allocations and
// metadata, trigger modes, sensor snapshots, and the gateway
// parameter/status mirrors, in a bucket-per-concern layout.
package store

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/meerkat-commensal/corral/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketPool      = []byte("pool")      // free_hosts list + allocated_hosts:<product_id> lists
	bucketSubarrays = []byte("subarrays") // product_id -> Subarray JSON
	bucketMeta      = []byte("meta")      // global trigger mode, sensor snapshots
	bucketGateway   = []byte("gateway")   // mirror of last KEY=VALUE published per domain/host
	bucketStatus    = []byte("status")    // mirror of each host's gateway status hash
)

const (
	keyFreeHosts        = "free_hosts"
	keyTriggerModeGlobl = "trigger_mode"
	allocatedPrefix     = "allocated_hosts:"
)

// Store is a BoltDB-backed persistence layer for coordinator state.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the BoltDB file under dataDir.
func Open(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "corral.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketPool, bucketSubarrays, bucketMeta, bucketGateway, bucketStatus} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- free/allocated host pool -----------------------------------------------

func decodeHostList(data []byte) []string {
	if data == nil {
		return nil
	}
	var hosts []string
	_ = json.Unmarshal(data, &hosts)
	return hosts
}

func encodeHostList(hosts []string) []byte {
	data, _ := json.Marshal(hosts)
	return data
}

// InitPool seeds the free host pool with hosts from configuration, but
// only if the store has no pool yet: an existing pool is the source of
// truth across restarts, and the config file's node list only applies
// on first startup.
func (s *Store) InitPool(hosts []string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPool)
		if b.Get([]byte(keyFreeHosts)) != nil {
			return nil
		}
		return b.Put([]byte(keyFreeHosts), encodeHostList(hosts))
	})
}

// FreeHosts returns the current free host pool, in allocation order.
func (s *Store) FreeHosts() ([]string, error) {
	var hosts []string
	err := s.db.View(func(tx *bolt.Tx) error {
		hosts = decodeHostList(tx.Bucket(bucketPool).Get([]byte(keyFreeHosts)))
		return nil
	})
	return hosts, err
}

// AllocatedHosts returns the hosts currently allocated to productID.
func (s *Store) AllocatedHosts(productID string) ([]string, error) {
	var hosts []string
	err := s.db.View(func(tx *bolt.Tx) error {
		hosts = decodeHostList(tx.Bucket(bucketPool).Get([]byte(allocatedPrefix + productID)))
		return nil
	})
	return hosts, err
}

// Allocate atomically removes up to n hosts from the front of the free
// pool and assigns them to productID, returning however many it actually
// allocated. Fewer than n is not an error: partial-band processing is
// permitted when the pool is short.
func (s *Store) Allocate(productID string, n int) ([]string, error) {
	var allocated []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPool)
		free := decodeHostList(b.Get([]byte(keyFreeHosts)))

		take := n
		if take > len(free) {
			take = len(free)
		}
		allocated = append([]string(nil), free[:take]...)
		remaining := append([]string(nil), free[take:]...)

		if err := b.Put([]byte(keyFreeHosts), encodeHostList(remaining)); err != nil {
			return err
		}
		return b.Put([]byte(allocatedPrefix+productID), encodeHostList(allocated))
	})
	return allocated, err
}

// Release atomically returns productID's allocated hosts to the back
// of the free pool, in append order, and deletes the allocation
// record.
func (s *Store) Release(productID string) ([]string, error) {
	var released []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPool)
		allocKey := []byte(allocatedPrefix + productID)
		released = decodeHostList(b.Get(allocKey))
		if len(released) == 0 {
			return nil
		}

		free := decodeHostList(b.Get([]byte(keyFreeHosts)))
		free = append(free, released...)
		if err := b.Put([]byte(keyFreeHosts), encodeHostList(free)); err != nil {
			return err
		}
		return b.Delete(allocKey)
	})
	return released, err
}

// --- subarray records --------------------------------------------------------

// PutSubarray upserts a subarray record.
func (s *Store) PutSubarray(sub *types.Subarray) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(sub)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSubarrays).Put([]byte(sub.ProductID), data)
	})
}

// GetSubarray fetches a subarray by product ID.
func (s *Store) GetSubarray(productID string) (*types.Subarray, error) {
	var sub types.Subarray
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSubarrays).Get([]byte(productID))
		if data == nil {
			return fmt.Errorf("subarray not found: %s", productID)
		}
		return json.Unmarshal(data, &sub)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubarrays returns every configured subarray.
func (s *Store) ListSubarrays() ([]*types.Subarray, error) {
	var subs []*types.Subarray
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSubarrays).ForEach(func(k, v []byte) error {
			var sub types.Subarray
			if err := json.Unmarshal(v, &sub); err != nil {
				return err
			}
			subs = append(subs, &sub)
			return nil
		})
	})
	return subs, err
}

// CountSubarrays satisfies metrics.SubarrayCounter.
func (s *Store) CountSubarrays() (int, error) {
	subs, err := s.ListSubarrays()
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}

// DeleteSubarray removes a subarray record, called at deconfigure once its
// hosts have been released.
func (s *Store) DeleteSubarray(productID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSubarrays).Delete([]byte(productID))
	})
}

// --- trigger mode -------------------------------------------------------------

// SetDefaultTriggerMode persists the global default trigger mode applied
// to newly configured subarrays, and on a coordinator:trigger_mode event.
func (s *Store) SetDefaultTriggerMode(mode types.TriggerMode) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(keyTriggerModeGlobl), []byte(mode))
	})
}

// DefaultTriggerMode returns the persisted global trigger mode, defaulting
// to idle if none has ever been set.
func (s *Store) DefaultTriggerMode() (types.TriggerMode, error) {
	var mode types.TriggerMode
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(keyTriggerModeGlobl))
		if data == nil {
			mode = types.TriggerModeIdle
			return nil
		}
		mode = types.TriggerMode(data)
		return nil
	})
	return mode, err
}

// --- sensor snapshots ---------------------------------------------------------

// PutSensor caches a sensor value under "<product_id>:<sensor_name>", as
// populated by the metadata fetcher and read back by the coordinator.
func (s *Store) PutSensor(productID, sensorName, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(productID+":"+sensorName), []byte(value))
	})
}

// GetSensor returns the cached sensor value, and whether one was found.
func (s *Store) GetSensor(productID, sensorName string) (string, bool, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(productID + ":" + sensorName))
		if data != nil {
			value, found = string(data), true
		}
		return nil
	})
	return value, found, err
}

// --- gateway KEY=VALUE mirror --------------------------------------------------

// PutGatewayValue mirrors a KEY=VALUE parameter published through the
// gateway under the given domain/host/key so it can be replayed to a node
// that restarts and subscribes late.
func (s *Store) PutGatewayValue(domain, host, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGateway).Put([]byte(gatewayKey(domain, host, key)), []byte(value))
	})
}

// GatewayValue returns the last mirrored value for domain/host/key, and
// whether one was found.
func (s *Store) GatewayValue(domain, host, key string) (string, bool, error) {
	var value string
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketGateway).Get([]byte(gatewayKey(domain, host, key)))
		if data != nil {
			value, found = string(data), true
		}
		return nil
	})
	return value, found, err
}

func gatewayKey(domain, host, key string) string {
	return domain + "/" + host + "/" + key
}

// --- host status hash ----------------------------------------------------------
//
// In production each processing node writes its own
// NETSTAT/PKTIDX/DWELL/DATADIR status hash directly, and the
// coordinator only reads it. PutHostStatus exists so tests and the
// status reader in pkg/health go through the same store the real fleet
// would populate.

// PutHostStatus writes (or overwrites) a host's status hash.
func (s *Store) PutHostStatus(domain, host string, status types.HostStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStatus).Put([]byte(statusKey(domain, host)), data)
	})
}

// HostStatus reads back a host's status hash. Returns found=false if the
// node has never reported status.
func (s *Store) HostStatus(domain, host string) (types.HostStatus, bool, error) {
	var status types.HostStatus
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketStatus).Get([]byte(statusKey(domain, host)))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &status)
	})
	return status, found, err
}

func statusKey(domain, host string) string {
	return domain + "/" + host
}

// ListHostStatuses counts reporting hosts by NETSTAT value, across all
// domains. Satisfies metrics.HostLister for the pool gauges.
func (s *Store) ListHostStatuses() (map[string]int, error) {
	counts := make(map[string]int)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStatus).ForEach(func(k, v []byte) error {
			var status types.HostStatus
			if err := json.Unmarshal(v, &status); err != nil {
				return nil
			}
			netStat := status.NetStat
			if netStat == "" {
				netStat = "unknown"
			}
			counts[netStat]++
			return nil
		})
	})
	return counts, err
}

// PktIdxString is a convenience for tests that seed status hashes the way
// the wire format represents PKTIDX: an ASCII decimal string, not a typed
// field.
func PktIdxString(v int64) string {
	return strconv.FormatInt(v, 10)
}
