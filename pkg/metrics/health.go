package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Check probes one subsystem at request time; nil means healthy. The
// error text is surfaced verbatim in the health report, so checks
// should return operator-readable errors ("nats connection CLOSED",
// not a bare sentinel).
type Check func() error

// Report is the JSON body served by the health endpoint.
type Report struct {
	Status     string            `json:"status"` // ok | failing
	Uptime     string            `json:"uptime"`
	Subsystems map[string]string `json:"subsystems,omitempty"`
}

// Healthy reports whether every subsystem passed.
func (r Report) Healthy() bool {
	return r.Status == "ok"
}

// Doctor answers the health endpoint by running registered subsystem
// checks on demand. Checks are pulled at request time rather than
// pushed by the subsystems, so a report reflects the store, the event
// bus, and the event loop as they are at the moment of the probe.
type Doctor struct {
	start time.Time

	mu     sync.Mutex
	names  []string // registration order, for stable report iteration
	checks map[string]Check
}

// NewDoctor creates a Doctor with no registered checks. A checkless
// Doctor reports ok.
func NewDoctor() *Doctor {
	return &Doctor{
		start:  time.Now(),
		checks: make(map[string]Check),
	}
}

// Register adds a named subsystem check. Registering a name twice
// replaces the earlier check.
func (d *Doctor) Register(name string, check Check) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.checks[name]; !exists {
		d.names = append(d.names, name)
	}
	d.checks[name] = check
}

// Run executes every registered check and folds the results into one
// Report. Status is "ok" only when every subsystem passes; a failing
// subsystem's entry carries its error text.
func (d *Doctor) Run() Report {
	d.mu.Lock()
	names := append([]string(nil), d.names...)
	checks := make(map[string]Check, len(d.checks))
	for name, check := range d.checks {
		checks[name] = check
	}
	d.mu.Unlock()

	report := Report{
		Status:     "ok",
		Uptime:     time.Since(d.start).String(),
		Subsystems: make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := checks[name](); err != nil {
			report.Status = "failing"
			report.Subsystems[name] = err.Error()
		} else {
			report.Subsystems[name] = "ok"
		}
	}
	return report
}

// Handler serves the full health report: 200 when every subsystem
// passes, 503 otherwise.
func (d *Doctor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := d.Run()

		w.Header().Set("Content-Type", "application/json")
		if !report.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// LivenessHandler answers 200 whenever the process is up, without
// running any checks; a supervisor uses it to tell "wedged" apart
// from "alive but unhealthy".
func (d *Doctor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(d.start).String(),
		})
	}
}
