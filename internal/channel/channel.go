package channel

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"time"

	"main/internal/model"
	"main/internal/session"
	"main/internal/transport"
	"main/pkg/exception"

	"github.com/yanun0323/logs"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultConnectTimeout    = 10 * time.Second

	// reconnectSettleDelay spaces a manual reconnect from the closure of the
	// previous socket so the two never race.
	reconnectSettleDelay = 250 * time.Millisecond

	heartbeatPing = "ping"
	heartbeatPong = "pong"
)

// CredentialSource supplies the identity used to open the socket.
// Absent credentials mean "do not connect".
type CredentialSource interface {
	Credentials() (session.Credentials, bool)
}

// Option configures a Channel.
type Option struct {
	// Dialer establishes new connections. Required.
	Dialer transport.Dialer
	// Credentials supplies the account identity. Required.
	Credentials CredentialSource
	// Retry defines reconnect backoff. Optional; default DefaultPolicy when
	// all fields are zero.
	Retry Policy
	// HeartbeatInterval spaces liveness pings while connected. Optional;
	// default 30s.
	HeartbeatInterval time.Duration
	// ConnectTimeout bounds how long a connect attempt may take before it is
	// forced closed. Optional; default 10s.
	ConnectTimeout time.Duration
}

func (opt *Option) init() {
	if opt.Retry.InitialDelay == 0 && opt.Retry.Multiplier == 0 && opt.Retry.MaxDelay == 0 && opt.Retry.MaxRetries == 0 {
		opt.Retry = DefaultPolicy()
	}
	if opt.HeartbeatInterval <= 0 {
		opt.HeartbeatInterval = defaultHeartbeatInterval
	}
	if opt.ConnectTimeout <= 0 {
		opt.ConnectTimeout = defaultConnectTimeout
	}
}

// Channel maintains a persistent, bidirectional event stream and fans
// inbound envelopes out to subscribers. It owns the socket, the retry
// state and every timer; nothing else mutates them.
type Channel struct {
	opt      Option
	registry *Registry
	timers   *timerSet

	mu         sync.Mutex
	state      State
	conn       transport.Conn
	gen        uint64
	dialCancel context.CancelFunc
	attempt    int
	countdown  int
	last       *model.Envelope
}

// New validates the configuration and builds a disconnected channel.
func New(opt Option) (*Channel, error) {
	if opt.Dialer == nil {
		return nil, exception.ErrNilDialer
	}
	if opt.Credentials == nil {
		return nil, exception.ErrNoCredential
	}
	opt.init()

	return &Channel{
		opt:       opt,
		registry:  NewRegistry(),
		timers:    newTimerSet(),
		countdown: -1,
	}, nil
}

// Subscribe registers fn for envelopes of eventType (or Wildcard) and
// returns its remover. Subscriptions persist across reconnects.
func (c *Channel) Subscribe(eventType string, fn Handler) (unsubscribe func()) {
	return c.registry.Subscribe(eventType, fn)
}

// Connect opens the socket if the channel is disconnected and credentials
// are present. It is a no-op in every other state, so external triggers may
// call it freely without spawning duplicate connection attempts.
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.state != StateDisconnected || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.startConnectLocked()
	c.mu.Unlock()
}

// Disconnect closes the socket with a normal close code, cancels all pending
// work and resets the retry state. Safe to call from any state.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	conn := c.conn
	c.conn = nil
	wasConnected := c.state == StateConnected
	c.state = StateDisconnected
	c.attempt = 0
	c.countdown = -1
	c.mu.Unlock()

	c.timers.StopAll()
	if conn != nil {
		_ = conn.Close(transport.CloseNormal, "client disconnect")
	}
	if wasConnected {
		logs.Info("channel disconnected")
		c.notifyStatus(model.StatusDisconnected)
	}
}

// Reconnect is the manual override: it resets the attempt counter, closes
// any live socket with a normal code so the automatic retry path stays
// quiet, and connects again after a short settle delay.
func (c *Channel) Reconnect() {
	c.mu.Lock()
	c.gen++
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.attempt = 0
	c.countdown = -1
	c.mu.Unlock()

	c.timers.StopAll()
	if conn != nil {
		_ = conn.Close(transport.CloseNormal, "manual reconnect")
	}
	c.timers.After(timerManualReconnect, reconnectSettleDelay, c.Connect)
}

// Send writes a payload if the channel is connected. Strings and raw bytes
// go out verbatim; anything else is JSON-serialized. The result reports
// whether the write was handed to the transport; there is no delivery
// acknowledgement.
func (c *Channel) Send(data any) bool {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()
	if !connected {
		return false
	}

	var payload []byte
	switch v := data.(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			logs.Warnf("drop outbound payload: %v", err)
			return false
		}
		payload = encoded
	}

	if err := conn.Write(payload); err != nil {
		// The closure event that follows drives the state transition.
		logs.Warnf("write failed: %v", err)
		return false
	}
	return true
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt returns the current retry attempt counter.
func (c *Channel) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// MaxRetries returns the configured retry limit.
func (c *Channel) MaxRetries() int {
	return c.opt.Retry.MaxRetries
}

// Countdown returns the seconds until the next automatic retry, and whether
// the channel is currently waiting for one.
func (c *Channel) Countdown() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countdown < 0 {
		return 0, false
	}
	return c.countdown, true
}

// LastEnvelope returns a copy of the most recently received envelope.
func (c *Channel) LastEnvelope() (model.Envelope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return model.Envelope{}, false
	}
	return *c.last, true
}

// startConnectLocked begins a connect attempt. Caller holds c.mu.
func (c *Channel) startConnectLocked() {
	creds, ok := c.opt.Credentials.Credentials()
	if !ok {
		return
	}

	c.gen++
	gen := c.gen
	c.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	// The guard forces a socket that never reaches connected to give up,
	// which re-enters the closure handling path below.
	c.timers.After(timerConnectGuard, c.opt.ConnectTimeout, cancel)

	go c.dial(ctx, gen, creds)
}

func (c *Channel) dial(ctx context.Context, gen uint64, creds session.Credentials) {
	conn, err := c.opt.Dialer.Dial(ctx, creds)
	if err != nil {
		c.handleClosed(gen, err)
		return
	}

	c.mu.Lock()
	if c.gen != gen || c.state != StateConnecting {
		c.mu.Unlock()
		_ = conn.Close(transport.CloseNormal, "superseded")
		return
	}
	c.timers.Stop(timerConnectGuard)
	c.dialCancel = nil
	c.conn = conn
	c.state = StateConnected
	c.attempt = 0
	c.countdown = -1
	c.mu.Unlock()

	c.timers.Every(timerHeartbeat, c.opt.HeartbeatInterval, c.heartbeat)
	go c.readLoop(gen, conn)

	logs.Info("channel connected")
	c.notifyStatus(model.StatusConnected)
}

func (c *Channel) readLoop(gen uint64, conn transport.Conn) {
	for {
		payload, err := conn.Read()
		if err != nil {
			c.handleClosed(gen, err)
			return
		}
		c.handleFrame(payload)
	}
}

// handleFrame parses one inbound frame. A bare pong is the heartbeat reply;
// anything else unparsable is dropped without error.
func (c *Channel) handleFrame(payload []byte) {
	if string(payload) == heartbeatPong {
		return
	}
	ev, ok := model.ParseEnvelope(payload)
	if !ok {
		return
	}

	c.mu.Lock()
	c.last = &ev
	c.mu.Unlock()

	c.registry.Dispatch(ev)
}

// handleClosed is the single convergence point for every way a socket can
// end: dial failure, guard expiry, read error, server close. Stale
// generations are ignored so a superseded socket cannot disturb its
// replacement.
func (c *Channel) handleClosed(gen uint64, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}

	c.conn = nil
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	c.timers.Stop(timerConnectGuard)
	c.timers.Stop(timerHeartbeat)

	_, hasCreds := c.opt.Credentials.Credentials()
	if transport.IsNormalClosure(err) || !hasCreds {
		c.state = StateDisconnected
		c.attempt = 0
		c.countdown = -1
		c.mu.Unlock()

		logs.Info("channel disconnected")
		c.notifyStatus(model.StatusDisconnected)
		return
	}

	c.attempt++
	if c.attempt > c.opt.Retry.MaxRetries {
		c.state = StateFailed
		c.countdown = -1
		attempt := c.attempt
		c.mu.Unlock()

		logs.Errorf("channel failed after %d attempts: %v", attempt-1, err)
		c.notifyStatus(model.StatusFailed)
		return
	}

	delay := c.opt.Retry.Delay(c.attempt)
	c.state = StateReconnecting
	c.countdown = int(math.Ceil(delay.Seconds()))
	attempt := c.attempt
	c.mu.Unlock()

	logs.Warnf("connection lost (%v), retry %d/%d in %s", err, attempt, c.opt.Retry.MaxRetries, delay.Round(time.Millisecond))
	c.timers.After(timerReconnect, delay, c.fireReconnect)
	c.timers.Every(timerCountdown, time.Second, c.tickCountdown)
}

func (c *Channel) fireReconnect() {
	c.timers.Stop(timerCountdown)

	c.mu.Lock()
	if c.state != StateReconnecting {
		c.mu.Unlock()
		return
	}
	c.countdown = -1
	c.startConnectLocked()
	stoodDown := false
	if c.state == StateReconnecting {
		// Credentials went away while waiting; stand down.
		c.state = StateDisconnected
		c.attempt = 0
		stoodDown = true
	}
	c.mu.Unlock()

	if stoodDown {
		logs.Info("channel disconnected")
		c.notifyStatus(model.StatusDisconnected)
	}
}

func (c *Channel) tickCountdown() {
	c.mu.Lock()
	if c.state != StateReconnecting || c.countdown <= 0 {
		c.mu.Unlock()
		return
	}
	c.countdown--
	c.mu.Unlock()
}

func (c *Channel) heartbeat() {
	c.mu.Lock()
	conn := c.conn
	connected := c.state == StateConnected && conn != nil
	c.mu.Unlock()
	if !connected {
		return
	}
	if err := conn.Write([]byte(heartbeatPing)); err != nil {
		logs.Warnf("heartbeat write failed: %v", err)
	}
}

// notifyStatus dispatches a synthesized connection_status envelope. It never
// updates the last received envelope.
func (c *Channel) notifyStatus(status string) {
	payload, err := json.Marshal(model.ConnectionStatus{
		Status:     status,
		Attempt:    c.Attempt(),
		MaxRetries: c.MaxRetries(),
	})
	if err != nil {
		return
	}
	c.registry.Dispatch(model.Envelope{
		Type: model.EventConnectionStatus,
		Data: payload,
	})
}
