package metadata

import (
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn the fetcher depends on, narrowed
// so tests can substitute an in-memory fake instead of a real socket.
type Conn interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	SetReadDeadline(t time.Time) error
	Close() error
}

// Dialer opens a Conn to the telescope sensor websocket API.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// GorillaDialer is the production Dialer, backed by gorilla/websocket.
type GorillaDialer struct{}

// Dial implements Dialer.
func (GorillaDialer) Dial(url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// sensorQuery is one request frame sent to the sensor API: "give me
// the current value of this sensor" (a "sampling once" request in CAM
// katportal vocabulary).
type sensorQuery struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// sensorReply is the corresponding response frame.
type sensorReply struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Status string `json:"status"`
}

// subscribeRequest asks the API to start pushing continuous updates for
// the named sensors.
type subscribeRequest struct {
	Type    string   `json:"type"`
	Sensors []string `json:"sensors"`
}

// sensorUpdate is one pushed update frame, structurally identical to
// sensorReply but named separately since it arrives unsolicited.
type sensorUpdate = sensorReply
