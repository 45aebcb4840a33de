package reader

import (
	"context"
	"crypto/tls"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"stockpulse/config"
	"stockpulse/internal/metrics"
	"stockpulse/logger"
	"stockpulse/models"
)

// ConnectionState describes the feed connection lifecycle.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateClosing
	StateStopped
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	stopTimeout             = 5 * time.Second
	defaultSubscribeRate    = 10
	defaultSubscribeBurst   = 5
)

// FeedReader owns the websocket connection to the trade feed. It keeps
// exactly one connection alive at a time, resubscribes to every watched
// symbol on (re)connect and survives disconnects by retrying with
// exponential backoff. Received messages are handed to the router inline on
// the reader's own goroutine, so trades are processed in strict arrival
// order.
type FeedReader struct {
	cfg     config.FeedConfig
	router  Router
	log     *logger.Log
	dialer  *websocket.Dialer
	limiter *rate.Limiter

	wg      sync.WaitGroup
	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
	running atomic.Bool
	state   atomic.Int32
	stopCh  chan struct{}
}

// Router consumes raw feed payloads.
type Router interface {
	Route(raw []byte)
}

func NewFeedReader(cfg config.FeedConfig, router Router) *FeedReader {
	log := logger.GetLogger()

	dialer := &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	if cfg.InsecureSkipVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		log.WithComponent("feed_reader").Warn("TLS certificate verification for the feed is disabled")
	}

	rps := cfg.SubscribeRate.RequestsPerSecond
	if rps <= 0 {
		rps = defaultSubscribeRate
	}
	burst := cfg.SubscribeRate.Burst
	if burst <= 0 {
		burst = defaultSubscribeBurst
	}

	return &FeedReader{
		cfg:     cfg,
		router:  router,
		log:     log,
		dialer:  dialer,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		stopCh:  make(chan struct{}),
	}
}

// State returns the current connection state.
func (r *FeedReader) State() ConnectionState {
	return ConnectionState(r.state.Load())
}

func (r *FeedReader) setState(s ConnectionState) {
	r.state.Store(int32(s))
	metrics.SetConnectionState(int(s))
}

// Start launches the connection loop in a background goroutine. Calling
// Start while the reader is already running is a no-op.
func (r *FeedReader) Start(ctx context.Context) {
	log := r.log.WithComponent("feed_reader").WithFields(logger.Fields{"operation": "start"})

	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		log.Debug("feed reader already running")
		return
	}
	r.started = true
	r.running.Store(true)
	r.mu.Unlock()

	r.setState(StateConnecting)
	log.WithFields(logger.Fields{"url": r.cfg.URL, "symbols": r.cfg.Symbols}).Info("starting feed reader")

	r.wg.Add(1)
	go r.run(ctx)
}

// Stop terminates the connection loop. It closes the active connection if
// present and waits up to stopTimeout for the background goroutine to end;
// expiry of that wait is reported, not escalated. Stop before Start, or a
// second Stop, is a safe no-op.
func (r *FeedReader) Stop() {
	log := r.log.WithComponent("feed_reader")

	r.mu.Lock()
	if !r.started || !r.running.Load() {
		r.mu.Unlock()
		log.Debug("feed reader not running, nothing to stop")
		return
	}
	r.running.Store(false)
	close(r.stopCh)
	r.setState(StateClosing)
	if r.conn != nil {
		r.conn.Close()
	}
	r.mu.Unlock()

	log.Info("stopping feed reader")

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("feed reader stopped")
	case <-time.After(stopTimeout):
		log.Warn("feed reader did not terminate gracefully")
	}

	r.setState(StateStopped)
}

func (r *FeedReader) setConn(conn *websocket.Conn) {
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
}

func (r *FeedReader) feedURL() string {
	if r.cfg.Token == "" {
		return r.cfg.URL
	}
	return r.cfg.URL + "?token=" + url.QueryEscape(r.cfg.Token)
}

// run is the connection loop. It never exits on connection or processing
// errors; only Stop (or context cancellation) ends it.
func (r *FeedReader) run(ctx context.Context) {
	defer r.wg.Done()
	defer r.setState(StateStopped)

	log := r.log.WithComponent("feed_reader").WithFields(logger.Fields{"worker": "connection_loop"})

	delay := r.cfg.Reconnect.InitialDelay
	attempts := 0

	for r.running.Load() && ctx.Err() == nil {
		r.setState(StateConnecting)
		if attempts > 0 {
			logger.IncrementReconnect()
			metrics.IncrementReconnect()
		}
		attempts++

		conn, _, err := r.dialer.DialContext(ctx, r.feedURL(), nil)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"attempt": attempts, "retry_in": delay.String()}).Warn("failed to connect to feed")
			if r.waitForReconnect(ctx, delay) {
				return
			}
			delay = nextDelay(delay, r.cfg.Reconnect.MaxDelay)
			continue
		}
		r.setConn(conn)

		// Stop may have run while the dial was in flight; the connection it
		// never saw must not be left open.
		if !r.running.Load() || ctx.Err() != nil {
			r.setConn(nil)
			conn.Close()
			log.Info("feed connection closed for shutdown")
			return
		}

		if err := r.subscribe(ctx, conn); err != nil {
			log.WithError(err).Warn("failed to subscribe to watched symbols")
			r.setConn(nil)
			conn.Close()
			if r.waitForReconnect(ctx, delay) {
				return
			}
			delay = nextDelay(delay, r.cfg.Reconnect.MaxDelay)
			continue
		}

		r.setState(StateConnected)
		log.WithFields(logger.Fields{"symbols": len(r.cfg.Symbols)}).Info("feed connected and subscribed")
		// a stable connection restarts the backoff sequence
		delay = r.cfg.Reconnect.InitialDelay

		r.readMessages(conn)

		r.setConn(nil)
		conn.Close()

		if !r.running.Load() || ctx.Err() != nil {
			log.Info("feed connection closed for shutdown")
			return
		}

		r.setState(StateDisconnected)
		log.WithFields(logger.Fields{"retry_in": delay.String()}).Warn("feed disconnected unexpectedly, reconnecting")
		if r.waitForReconnect(ctx, delay) {
			return
		}
		delay = nextDelay(delay, r.cfg.Reconnect.MaxDelay)
	}
}

// subscribe sends one subscription request per watched symbol, paced by the
// configured rate limit.
func (r *FeedReader) subscribe(ctx context.Context, conn *websocket.Conn) error {
	log := r.log.WithComponent("feed_reader")
	for _, symbol := range r.cfg.Symbols {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := conn.WriteJSON(models.SubscribeRequest{Type: "subscribe", Symbol: symbol}); err != nil {
			return err
		}
		log.WithFields(logger.Fields{"symbol": symbol}).Info("subscribed to symbol")
	}
	return nil
}

// readMessages forwards every received payload to the router, inline on this
// goroutine. It returns when the connection errors or closes; distinguishing
// an intentional close from an unexpected one is the caller's job.
func (r *FeedReader) readMessages(conn *websocket.Conn) {
	log := r.log.WithComponent("feed_reader")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if r.running.Load() {
				log.WithError(err).Warn("feed read loop ended")
			}
			return
		}
		r.router.Route(msg)
	}
}

// waitForReconnect sleeps for the given delay. It returns true when the
// reader was stopped while waiting.
func (r *FeedReader) waitForReconnect(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true
	case <-r.stopCh:
		return true
	case <-timer.C:
		return !r.running.Load()
	}
}

// nextDelay doubles the backoff delay up to the configured maximum.
func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
