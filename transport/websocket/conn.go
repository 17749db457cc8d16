package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
)

// Conn is one client socket. Frames are queued by TrySend and written by a
// single pump goroutine, so a slow client never blocks a room.
type Conn struct {
	ws *websocket.Conn

	send chan []byte
	done chan struct{}
	once sync.Once

	writeTimeout time.Duration
	pingPeriod   time.Duration
}

func newConn(ws *websocket.Conn, buffer int, writeTimeout, pingPeriod time.Duration) *Conn {
	if buffer <= 0 {
		buffer = 1
	}

	return &Conn{
		ws:           ws,
		send:         make(chan []byte, buffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
		pingPeriod:   pingPeriod,
	}
}

// TrySend - queues a frame without blocking.
func (that *Conn) TrySend(data []byte) error {
	select {
	case <-that.done:
		return apperror.ErrConnectionClosed
	default:
	}

	select {
	case that.send <- data:
		return nil
	case <-that.done:
		return apperror.ErrConnectionClosed
	default:
		return apperror.ErrBackpressure
	}
}

// Close - asks the pump to flush queued frames and hang up. Safe to call more than once.
func (that *Conn) Close() {
	that.once.Do(func() {
		close(that.done)
	})
}

func (that *Conn) writePump() {
	var ping <-chan time.Time
	if that.pingPeriod > 0 {
		ticker := time.NewTicker(that.pingPeriod)
		defer ticker.Stop()

		ping = ticker.C
	}

	defer func() {
		that.Close()
		_ = that.ws.Close()
	}()

	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping:
			if err := that.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-that.done:
			that.flush()
			_ = that.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

			return
		}
	}
}

func (that *Conn) flush() {
	for {
		select {
		case data := <-that.send:
			if err := that.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (that *Conn) write(messageType int, data []byte) error {
	if that.writeTimeout > 0 {
		if err := that.ws.SetWriteDeadline(time.Now().Add(that.writeTimeout)); err != nil {
			return err
		}
	}

	return that.ws.WriteMessage(messageType, data)
}
