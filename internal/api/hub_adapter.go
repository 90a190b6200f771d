package api

import "crossspread/internal/api/wsstream"

// hubAdapter adapts *wsstream.Hub to the progressBroadcaster interface
// Service depends on, so Service itself stays decoupled from the
// websocket package's message types.
type hubAdapter struct {
	hub *wsstream.Hub
}

// NewHubAdapter wraps hub for use as a Service's progressBroadcaster.
func NewHubAdapter(hub *wsstream.Hub) progressBroadcaster {
	return hubAdapter{hub: hub}
}

func (a hubAdapter) BroadcastProgress(m progressMessage) {
	a.hub.BroadcastProgress(wsstream.ProgressMessage{
		JobID:          m.JobID,
		SnapshotsDone:  m.SnapshotsDone,
		SnapshotsTotal: m.SnapshotsTotal,
		OpenPositions:  m.OpenPositions,
		TradesClosed:   m.TradesClosed,
	})
}

func (a hubAdapter) BroadcastJobDone(jobID, status, errMsg string) {
	a.hub.BroadcastJobDone(wsstream.JobDoneMessage{
		JobID:  jobID,
		Status: status,
		Error:  errMsg,
	})
}
