package stream

import (
	"context"
	"sync"
	"time"

	"market-stream/src/models"
)

// Session is the server-side state of one client subscription. Phase and the
// last pushed tick time are written only by the session's own start and poll
// executions; the mutex exists so listings can read them.
type Session struct {
	ConnID    string
	StockCode string
	StartedAt time.Time

	ctx        context.Context
	cancel     context.CancelFunc
	cancelOnce sync.Once

	mu          sync.RWMutex
	tradingDate models.MDate
	isToday     bool
	phase       models.MTradingPhase
	lastPushed  *models.MTickTime
}

func newSession(parent context.Context, connID, stockCode string, now time.Time) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		ConnID:    connID,
		StockCode: stockCode,
		StartedAt: now,
		ctx:       ctx,
		cancel:    cancel,
		phase:     models.PhaseWaiting,
	}
}

// Context is cancelled when the session is torn down.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Cancel stops the session's scheduled polling. Safe to call more than once.
func (s *Session) Cancel() {
	s.cancelOnce.Do(s.cancel)
}

// -----------------------------------------------------------------------------

func (s *Session) resolve(date models.MDate, isToday bool, lastPushed *models.MTickTime, phase models.MTradingPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tradingDate = date
	s.isToday = isToday
	s.lastPushed = lastPushed
	s.phase = phase
}

func (s *Session) TradingDate() models.MDate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tradingDate
}

// IsToday is fixed at start; it is not re-derived if the session crosses midnight.
func (s *Session) IsToday() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isToday
}

func (s *Session) Phase() models.MTradingPhase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *Session) setPhase(p models.MTradingPhase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) LastPushed() *models.MTickTime {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPushed
}

func (s *Session) setLastPushed(t *models.MTickTime) {
	s.mu.Lock()
	s.lastPushed = t
	s.mu.Unlock()
}

// Info returns a point-in-time view for listings.
func (s *Session) Info() models.MSessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := models.MSessionInfo{
		ConnID:    s.ConnID,
		StockCode: s.StockCode,
		Phase:     s.phase,
		StartedAt: s.StartedAt.Unix(),
	}
	if !s.tradingDate.IsZero() {
		info.TradingDate = s.tradingDate.String()
	}
	if s.lastPushed != nil {
		info.LastTickTime = s.lastPushed.String()
	}
	return info
}
