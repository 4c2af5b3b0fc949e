package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	. "github.com/onsi/gomega"

	"github.com/herlein/godtv/pkg/frontend"
)

// fakeToken completes immediately unless hang is set
type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error, hang bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if !hang {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu          sync.Mutex
	connectErr  error
	publishErr  error
	hang        bool
	connected   bool
	messages    []message
	disconnects int
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = c.connectErr == nil
	return newToken(c.connectErr, false)
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic, qos, retained, payload.([]byte)})
	return newToken(c.publishErr, c.hang)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.connected = false
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func snapshot() Snapshot {
	return Snapshot{
		Serial:    "AF0102020700001",
		Session:   "5f0c",
		Channel:   "DS-21",
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Status: frontend.Status{
			System:    "DTMB",
			Frequency: 538000000,
			Locked:    true,
			RxPower:   -4200,
			Strength:  -42000,
			CNR:       24500,
		},
	}
}

func TestPublish(t *testing.T) {
	g := NewWithT(t)
	client := &fakeClient{}
	cfg := DefaultConfig()
	cfg.QoS = 1
	cfg.Retain = true
	e := NewEmitter(cfg, WithClient(client))

	g.Expect(e.Publish(context.Background(), snapshot())).To(MatchError(ErrNotConnected))
	g.Expect(e.Connect(context.Background())).To(Succeed())
	g.Expect(e.Publish(context.Background(), snapshot())).To(Succeed())

	g.Expect(client.messages).To(HaveLen(1))
	m := client.messages[0]
	g.Expect(m.topic).To(Equal("dtv/AF0102020700001/status"))
	g.Expect(m.qos).To(Equal(byte(1)))
	g.Expect(m.retained).To(BeTrue())

	got, err := Decode(m.payload)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(got.Status).To(Equal(snapshot().Status))
	g.Expect(got.Timestamp.Equal(snapshot().Timestamp)).To(BeTrue())
	g.Expect(got.Channel).To(Equal("DS-21"))

	stats := e.Stats()
	g.Expect(stats.Connected).To(BeTrue())
	g.Expect(stats.Published).To(HaveKeyWithValue("dtv/AF0102020700001/status", uint64(1)))
	g.Expect(stats.Errors).To(Equal(uint64(1)))

	e.Disconnect()
	g.Expect(client.disconnects).To(Equal(1))
	g.Expect(e.Stats().Connected).To(BeFalse())
}

func TestConnectFailure(t *testing.T) {
	g := NewWithT(t)
	boom := errors.New("refused")
	e := NewEmitter(DefaultConfig(), WithClient(&fakeClient{connectErr: boom}))
	g.Expect(e.Connect(context.Background())).To(MatchError(boom))
	g.Expect(e.Stats().Connected).To(BeFalse())
}

func TestPublishFailures(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		ctx    func() context.Context
		want   string
	}{
		{
			name:   "broker error",
			client: &fakeClient{publishErr: errors.New("not authorized")},
			ctx:    context.Background,
			want:   "not authorized",
		},
		{
			name:   "timeout",
			client: &fakeClient{hang: true},
			ctx:    context.Background,
			want:   "publish timeout",
		},
		{
			name:   "cancelled",
			client: &fakeClient{hang: true},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			want: context.Canceled.Error(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			cfg := DefaultConfig()
			cfg.PublishTimeout = 10 * time.Millisecond
			e := NewEmitter(cfg, WithClient(tt.client))
			g.Expect(e.Connect(context.Background())).To(Succeed())
			g.Expect(e.Publish(tt.ctx(), snapshot())).To(MatchError(ContainSubstring(tt.want)))
			g.Expect(e.Stats().Errors).To(Equal(uint64(1)))
			g.Expect(e.Stats().Published).To(BeEmpty())
		})
	}
}

func TestNewEmitterDefaults(t *testing.T) {
	g := NewWithT(t)
	e := NewEmitter(Config{Broker: "broker:1883", Prefix: "lab"})
	g.Expect(e.cfg.ClientID).To(HavePrefix("godtv-"))
	g.Expect(e.cfg.ClientID).To(HaveLen(len("godtv-") + 8))
	g.Expect(e.cfg.PublishTimeout).To(Equal(2 * time.Second))
	g.Expect(e.cfg.Topic("X1")).To(Equal("lab/X1/status"))
}
