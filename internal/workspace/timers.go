package workspace

import (
	"context"
	"time"
)

// Start arms the periodic save. Idle saves are armed by edits once the
// session is running. Nothing starts for a submitted report.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.report.IsSubmitted() {
		return
	}
	s.running = true
	s.timerCtx = ctx
	s.stopTick = make(chan struct{})
	go s.intervalLoop(ctx, s.stopTick)
}

// Stop cancels pending timers. A save already in flight finishes.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimersLocked()
}

func (s *Session) stopTimersLocked() {
	if s.idle != nil {
		s.idle.Stop()
		s.idle = nil
	}
	if s.stopTick != nil {
		close(s.stopTick)
		s.stopTick = nil
	}
	s.running = false
}

func (s *Session) intervalLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(s.opts.SaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Save(ctx, TriggerInterval)
		}
	}
}

// scheduleIdleSave restarts the idle countdown.
func (s *Session) scheduleIdleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.report.IsSubmitted() {
		return
	}
	if s.idle != nil {
		s.idle.Stop()
	}
	ctx := s.timerCtx
	s.idle = time.AfterFunc(s.opts.IdleDelay, func() {
		if ctx.Err() != nil {
			return
		}
		s.Save(ctx, TriggerIdle)
	})
}
