package gateway

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"scribe/internal/broadcast"
	"scribe/internal/logging"
)

const (
	eventWriteTimeout = 10 * time.Second
	eventPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The gateway runs behind bearer-token auth; origins are not restricted.
	CheckOrigin: func(*http.Request) bool { return true },
}

// envelope frames websocket messages so clients can tell a snapshot of the
// current job state apart from a live progress event.
type envelope struct {
	Type     string           `json:"type"`
	Snapshot any              `json:"snapshot,omitempty"`
	Event    *broadcast.Event `json:"event,omitempty"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("job")

	// Subscribe before the snapshot so no event falls into the gap.
	sub := s.hub.Subscribe(jobID, 0)
	defer sub.Close()

	var snapshot any
	if jobID != "" {
		view, err := s.svc.GetJob(r.Context(), jobID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		snapshot = view
	} else {
		list, err := s.svc.ListJobs(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		snapshot = list
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
	if err := conn.WriteJSON(envelope{Type: "snapshot", Snapshot: snapshot}); err != nil {
		return
	}

	// Drain the client side so close frames and pongs are processed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(eventPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
			if err := conn.WriteJSON(envelope{Type: "event", Event: &event}); err != nil {
				return
			}
			if event.Terminal && jobID != "" {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"),
					time.Now().Add(eventWriteTimeout))
				return
			}
		}
	}
}
