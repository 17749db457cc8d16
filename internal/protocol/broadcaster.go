package protocol

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/rocketscienceinc/omok-backend/internal/apperror"
)

// Conn is a live client connection. TrySend must never block.
type Conn interface {
	TrySend(data []byte) error
	Close()
}

// FailureCounter receives one call per failed delivery.
type FailureCounter interface {
	DeliveryFailed()
}

type Broadcaster struct {
	logger   *slog.Logger
	failures FailureCounter
}

func NewBroadcaster(logger *slog.Logger, failures FailureCounter) *Broadcaster {
	return &Broadcaster{
		logger:   logger.With("component", "broadcaster"),
		failures: failures,
	}
}

// Send - delivers env to every target and returns how many accepted it.
// A failing target is logged and skipped; the remaining targets are still served.
func (that *Broadcaster) Send(targets []Conn, env Envelope) int {
	log := that.logger.With("method", "Send", "type", env.Type)

	data, err := json.Marshal(env)
	if err != nil {
		log.Error("failed to marshal envelope", "error", err)
		return 0
	}

	delivered := 0
	for _, conn := range targets {
		if conn == nil {
			continue
		}

		if err := conn.TrySend(data); err != nil {
			if errors.Is(err, apperror.ErrConnectionClosed) {
				log.Debug("skipping closed connection")
				continue
			}

			log.Warn("failed to deliver message", "error", err)
			if that.failures != nil {
				that.failures.DeliveryFailed()
			}
			continue
		}

		delivered++
	}

	return delivered
}

// SendTo - delivers env to a single connection.
func (that *Broadcaster) SendTo(conn Conn, env Envelope) bool {
	return that.Send([]Conn{conn}, env) == 1
}
