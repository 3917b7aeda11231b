package stream

import (
	"context"
	"errors"
	"time"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/metrics"
	"market-stream/src/models"
)

const (
	ReasonTradingFinished = "Trading finished"
	ReasonShutdown        = "Server shutting down"

	endFinished     = "finished"
	endDisconnected = "disconnected"
	endError        = "error"
	endReplaced     = "replaced"
	endClosed       = "closed"
)

// Options tunes the driver. Zero values fall back to the service defaults.
type Options struct {
	PollInterval  time.Duration
	PushThreshold time.Duration
	FetchTimeout  time.Duration
	Location      *time.Location
	Now           func() time.Time
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.PushThreshold <= 0 {
		o.PushThreshold = 3 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.Location == nil {
		o.Location = time.FixedZone("CST", 8*3600)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// -----------------------------------------------------------------------------
// Driver
// -----------------------------------------------------------------------------

// Driver runs every streaming session end to end: start, periodic polling,
// phase transitions, pushes and teardown.
type Driver struct {
	source    interfaces.ITickSource
	calendar  interfaces.ITradingCalendar
	transport interfaces.ITransport
	pool      *WorkerPool
	registry  *Registry
	opts      Options
	logger    *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDriver(
	source interfaces.ITickSource,
	calendar interfaces.ITradingCalendar,
	transport interfaces.ITransport,
	pool *WorkerPool,
	opts Options,
	log *logger.Logger,
) *Driver {
	opts.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{
		source:    source,
		calendar:  calendar,
		transport: transport,
		pool:      pool,
		registry:  NewRegistry(),
		opts:      opts,
		logger:    log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Registry exposes the live sessions.
func (d *Driver) Registry() *Registry {
	return d.registry
}

func (d *Driver) now() time.Time {
	return d.opts.Now().In(d.opts.Location)
}

// -----------------------------------------------------------------------------
// Connection lifecycle
// -----------------------------------------------------------------------------

// OnConnect registers a session for connID and queues its start. The accept
// path never waits on calendar or tick store calls.
func (d *Driver) OnConnect(connID, stockCode string) error {
	s := newSession(d.ctx, connID, stockCode, d.now())
	if prev := d.registry.Register(connID, s); prev != nil {
		d.logger.Warning("Replaced existing session for connId=%s (stockCode=%s)", connID, prev.StockCode)
		metrics.SessionsEnded.WithLabelValues(endReplaced).Inc()
	}
	metrics.SessionsStarted.Inc()

	if err := d.pool.Submit(func() { d.start(s) }); err != nil {
		metrics.StartRejected.Inc()
		d.fail(s, helpers.NewSessionStartError(err))
		return err
	}
	return nil
}

// OnDisconnect tears the session down without sending anything.
func (d *Driver) OnDisconnect(connID string) {
	s, ok := d.registry.Remove(connID)
	if !ok {
		return
	}
	s.Cancel()
	metrics.SessionsEnded.WithLabelValues(endDisconnected).Inc()
	d.logger.Info("Stopped streaming for connId=%s, stockCode=%s", connID, s.StockCode)
}

// CloseSession ends a live session on request and closes its connection.
func (d *Driver) CloseSession(connID, reason string) bool {
	s, ok := d.registry.Get(connID)
	if !ok {
		return false
	}
	return d.finish(s, endClosed, reason)
}

// Sessions lists the live sessions.
func (d *Driver) Sessions() []models.MSessionInfo {
	snapshot := d.registry.Snapshot()
	out := make([]models.MSessionInfo, 0, len(snapshot))
	for _, s := range snapshot {
		out = append(out, s.Info())
	}
	return out
}

// Shutdown closes every session and stops the worker pool.
func (d *Driver) Shutdown() {
	for _, s := range d.registry.Snapshot() {
		d.finish(s, endClosed, ReasonShutdown)
	}
	d.cancel()
	d.pool.Stop()
}

// -----------------------------------------------------------------------------
// Start
// -----------------------------------------------------------------------------

func (d *Driver) start(s *Session) {
	ctx := s.Context()
	if ctx.Err() != nil {
		return
	}
	d.logger.Info("Initializing tick stream for connId=%s, stockCode=%s", s.ConnID, s.StockCode)

	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	now := d.now()
	today := models.DateOf(now)

	tradingDate, err := d.calendar.LatestTradingDayOnOrBefore(fetchCtx, today)
	if err != nil {
		d.failUnlessGone(s, helpers.NewSessionStartError(err))
		return
	}

	ticks, err := d.source.HistoricalTicks(fetchCtx, s.StockCode, tradingDate)
	if err != nil {
		d.failUnlessGone(s, helpers.NewSessionStartError(err))
		return
	}
	if ticks == nil {
		ticks = []models.MTick{}
	}

	// Replaced or disconnected while fetching.
	if ctx.Err() != nil {
		return
	}

	isToday := tradingDate == today
	phase := PhaseAt(tradingDate, now)
	s.resolve(tradingDate, isToday, newestTickTime(ticks), phase)

	d.send(s, &models.MStreamMessage{
		Type:            models.MessageInitial,
		Phase:           phase,
		Message:         StatusText(phase, isToday),
		StockCode:       s.StockCode,
		TradingDate:     &tradingDate,
		TradingFinished: phase == models.PhaseFinished,
		Ticks:           ticks,
	})

	if phase == models.PhaseFinished {
		d.finish(s, endFinished, ReasonTradingFinished)
		return
	}

	go d.schedule(s)
}

func newestTickTime(ticks []models.MTick) *models.MTickTime {
	for i := len(ticks) - 1; i >= 0; i-- {
		if ticks[i].HasTime() {
			t := *ticks[i].Time
			return &t
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Polling
// -----------------------------------------------------------------------------

// schedule fires poll at a fixed period until the session is cancelled. Each
// firing waits for the previous poll to finish; firings that come due meanwhile
// are dropped, so a session never polls concurrently with itself.
func (d *Driver) schedule(s *Session) {
	ctx := s.Context()
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		done := make(chan struct{})
		err := d.pool.Submit(func() {
			defer close(done)
			d.poll(s)
		})
		if errors.Is(err, helpers.ErrPoolStopped) {
			return
		}
		if err != nil {
			metrics.PollSkipped.Inc()
			d.logger.Warning("Poll skipped for connId=%s: %v", s.ConnID, err)
			continue
		}

		select {
		case <-done:
		case <-ctx.Done():
			return
		}
	}
}

// poll runs one cycle for s. It is never executed concurrently for the same session.
func (d *Driver) poll(s *Session) {
	ctx := s.Context()
	if ctx.Err() != nil {
		return
	}
	started := time.Now()
	defer func() { metrics.PollDuration.Observe(time.Since(started).Seconds()) }()

	if !d.transport.IsOpen(s.ConnID) {
		d.teardown(s, endDisconnected)
		return
	}

	tradingDate := s.TradingDate()
	phase := PhaseAt(tradingDate, d.now())
	if phase != s.Phase() {
		s.setPhase(phase)
		d.logger.Info("Phase changed for connId=%s, stockCode=%s, newPhase=%s", s.ConnID, s.StockCode, phase)
		d.send(s, &models.MStreamMessage{
			Type:            models.MessageState,
			Phase:           phase,
			Message:         StatusText(phase, s.IsToday()),
			StockCode:       s.StockCode,
			TradingDate:     &tradingDate,
			TradingFinished: phase == models.PhaseFinished,
		})
		if phase == models.PhaseFinished {
			d.finish(s, endFinished, ReasonTradingFinished)
		}
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	latest, err := d.source.LatestTick(fetchCtx, s.StockCode, tradingDate)
	if err != nil {
		d.failUnlessGone(s, helpers.NewPollError(err))
		return
	}
	if latest == nil {
		return
	}

	if ctx.Err() != nil {
		return
	}
	if !ShouldPush(latest, s.LastPushed(), d.opts.PushThreshold) {
		metrics.TicksFiltered.Inc()
		return
	}

	s.setLastPushed(latest.Time)
	d.send(s, &models.MStreamMessage{
		Type:        models.MessageUpdate,
		Phase:       phase,
		StockCode:   s.StockCode,
		TradingDate: &tradingDate,
		Tick:        latest,
	})
}

// -----------------------------------------------------------------------------
// Delivery and teardown
// -----------------------------------------------------------------------------

// send delivers msg unless s has been cancelled or the connection is already
// closed. A cancelled session may share its connection id with a successor.
// Transport errors are logged and swallowed; the next poll's open check
// catches dead connections.
func (d *Driver) send(s *Session, msg *models.MStreamMessage) {
	if s.Context().Err() != nil {
		d.logger.Debug("Skip sending %s, session %s already ended", msg.Type, s.ConnID)
		return
	}
	if !d.transport.IsOpen(s.ConnID) {
		d.logger.Debug("Skip sending %s, connection %s already closed", msg.Type, s.ConnID)
		return
	}
	if err := d.transport.Send(s.ConnID, msg); err != nil {
		metrics.SendFailures.Inc()
		d.logger.Error("Failed to send %s message to %s: %v", msg.Type, s.ConnID, err)
		return
	}
	metrics.MessagesSent.WithLabelValues(msg.Type).Inc()
	d.logger.Debug("Sent %s message to %s", msg.Type, s.ConnID)
}

// failUnlessGone reports err to the client, unless the failure was caused by
// the session being cancelled underneath the fetch.
func (d *Driver) failUnlessGone(s *Session, err error) {
	if s.Context().Err() != nil {
		return
	}
	d.fail(s, err)
}

// fail sends a best-effort ERROR message and closes the connection.
func (d *Driver) fail(s *Session, err error) {
	d.logger.Warning("Closing session %s due to error: %v", s.ConnID, err)

	msg := &models.MStreamMessage{
		Type:            models.MessageError,
		Phase:           models.PhaseFinished,
		Message:         err.Error(),
		StockCode:       s.StockCode,
		TradingFinished: true,
	}
	if date := s.TradingDate(); !date.IsZero() {
		msg.TradingDate = &date
	}
	d.send(s, msg)
	d.finish(s, endError, err.Error())
}

// finish tears the session down and closes its connection with reason. The
// connection is left alone when s is no longer the registered session for it.
func (d *Driver) finish(s *Session, endReason, closeReason string) bool {
	if !d.teardown(s, endReason) {
		return false
	}
	d.logger.Info("Closing session %s for stockCode %s reason %s", s.ConnID, s.StockCode, closeReason)
	if !d.transport.IsOpen(s.ConnID) {
		return true
	}
	if err := d.transport.Close(s.ConnID, closeReason); err != nil {
		d.logger.Warning("Failed to close connection %s: %v", s.ConnID, err)
	}
	return true
}

func (d *Driver) teardown(s *Session, endReason string) bool {
	s.Cancel()
	if !d.registry.RemoveSession(s) {
		return false
	}
	metrics.SessionsEnded.WithLabelValues(endReason).Inc()
	return true
}
