package monitor

import (
	"time"

	"github.com/marcus/fieldsync/internal/models"
	"github.com/marcus/fieldsync/internal/netmon"
	"github.com/marcus/fieldsync/internal/store"
)

// historyLimit caps the history panel feed
const historyLimit = 50

// FetchData retrieves all data needed for the monitor display
func FetchData(s *store.Store, mon *netmon.Monitor) RefreshDataMsg {
	msg := RefreshDataMsg{
		Timestamp: time.Now(),
		Snapshot:  netmon.Snapshot{Online: mon.IsOnline(), Status: mon.Status()},
	}

	counts, err := s.GetPendingCounts()
	if err != nil {
		msg.Err = err
		return msg
	}
	msg.Counts = counts

	// Failed entries shown with their retry state; errors here are
	// non-fatal, the panel just renders empty.
	failed, _ := s.ListQueueEntriesByStatus(models.QueueFailed)
	abandoned, _ := s.ListQueueEntriesByStatus(models.QueueAbandoned)
	msg.Failed = append(failed, abandoned...)

	msg.History, _ = s.GetSyncHistoryTail(historyLimit)

	return msg
}
