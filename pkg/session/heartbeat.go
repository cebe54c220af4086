// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package session

import "time"

// startHeartbeat launches the optional internal ticker: the reference
// source configures HeartbeatIntervalMs/HeartbeatTimeoutMs but never
// drives them, leaving that to the host. When Config.EnableHeartbeat is
// set, the session drives them itself, observable purely as periodic
// PING frames to the hub and timeout sweeps — no new wire behavior.
func (s *Session) startHeartbeat() {
	interval := time.Duration(s.cfg.HeartbeatIntervalMs) * time.Millisecond
	if interval <= 0 {
		return
	}
	timeoutMs := int64(s.cfg.HeartbeatTimeoutMs)

	s.heartbeatStop = make(chan struct{})
	s.heartbeatDone = make(chan struct{})

	go func() {
		defer close(s.heartbeatDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.heartbeatStop:
				return
			case <-ticker.C:
				if err := s.Ping(AddrHub); err != nil {
					s.logger.Debug("heartbeat ping failed", "error", err)
				}
				if timeoutMs > 0 {
					s.CheckNodeTimeouts(timeoutMs)
				}
			}
		}
	}()
}

func (s *Session) stopHeartbeat() {
	if s.heartbeatStop == nil {
		return
	}
	close(s.heartbeatStop)
	<-s.heartbeatDone
	s.heartbeatStop = nil
	s.heartbeatDone = nil
}
