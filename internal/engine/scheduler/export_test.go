package scheduler

import "go.trai.ch/forge/internal/core/domain"

// GetUnitStatusMap returns a copy of the internal unit status map.
// This is exported for testing purposes only.
func (s *Scheduler) GetUnitStatusMap() map[string]domain.UnitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statusMap := make(map[string]domain.UnitStatus, len(s.unitStatus))
	for k, v := range s.unitStatus {
		statusMap[k] = v
	}
	return statusMap
}
