package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/utkarsh205-ui/order-execution-engine/pkg/engine/model"
)

const writeWait = 10 * time.Second

// wsSink adapts one websocket connection to statuschannel.Sink. Gorilla
// connections allow a single concurrent writer, hence the mutex.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSSink(conn *websocket.Conn) *wsSink {
	return &wsSink{conn: conn}
}

func (s *wsSink) Send(event *model.StatusEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}
