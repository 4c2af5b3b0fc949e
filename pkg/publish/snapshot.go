package publish

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/herlein/godtv/pkg/frontend"
)

// Snapshot is one published status sample
type Snapshot struct {
	Serial    string          `msgpack:"serial"`
	Session   string          `msgpack:"session"`
	Channel   string          `msgpack:"channel,omitempty"`
	Timestamp time.Time       `msgpack:"ts"`
	Status    frontend.Status `msgpack:"status"`
}

// Encode returns the msgpack payload
func (s Snapshot) Encode() ([]byte, error) {
	return msgpack.Marshal(&s)
}

// Decode parses a msgpack payload
func Decode(payload []byte) (Snapshot, error) {
	var s Snapshot
	err := msgpack.Unmarshal(payload, &s)
	return s, err
}
