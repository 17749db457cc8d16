package room

import (
	"time"

	"github.com/rocketscienceinc/omok-backend/internal/entity"
	"github.com/rocketscienceinc/omok-backend/internal/protocol"
)

// TryStartCountdown - moves a Ready room to Countdown and starts ticking in the
// background. Returns false when the room is not Ready.
//
// There is no cancel call: every tick re-reads the status under the lock and
// stops as soon as the room has left Countdown.
func (that *Room) TryStartCountdown() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.status != StatusReady {
		return false
	}

	that.status = StatusCountdown
	that.epoch++

	go that.runCountdown(that.epoch)

	that.logger.Info("countdown started", "method", "TryStartCountdown", "from", that.settings.CountdownFrom)

	return true
}

func (that *Room) runCountdown(epoch uint64) {
	for remaining := that.settings.CountdownFrom; remaining > 0; remaining-- {
		if !that.tick(epoch, remaining) {
			return
		}

		time.Sleep(that.settings.TickInterval)
	}

	that.completeCountdown(epoch)
}

func (that *Room) countdownActiveLocked(epoch uint64) bool {
	return that.status == StatusCountdown && that.epoch == epoch
}

func (that *Room) tick(epoch uint64, remaining int) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.countdownActiveLocked(epoch) {
		that.logger.Info("countdown aborted", "method", "tick", "remaining", remaining, "status", that.status)
		return false
	}

	that.broadcastLocked(protocol.Envelope{
		Type:    protocol.TypeCountdown,
		Payload: protocol.CountdownPayload{Remaining: remaining},
	})

	return true
}

func (that *Room) completeCountdown(epoch uint64) {
	that.mu.Lock()
	defer that.mu.Unlock()

	log := that.logger.With("method", "completeCountdown")

	if !that.countdownActiveLocked(epoch) {
		log.Info("countdown aborted at zero", "status", that.status)
		return
	}

	if !that.isReadyLocked() {
		that.status = StatusWait
		that.epoch++
		log.Info("readiness lost, back to wait")

		return
	}

	that.match = entity.NewMatch(that.players[0], that.players[1])
	that.match.Start()
	that.status = StatusPlaying

	for _, id := range that.players {
		that.broadcaster.SendTo(that.playerConns[id], protocol.Envelope{
			Type: protocol.TypeGameStart,
			Payload: protocol.GameStartPayload{
				MyColor:   that.match.ColorOf(id),
				FirstTurn: that.match.Turn,
			},
		})
	}

	that.armTurnTimerLocked()

	log.Info("match started", "black", that.match.BlackID, "white", that.match.WhiteID)
}

// armTurnTimerLocked - (re)starts the clock of the player to move.
func (that *Room) armTurnTimerLocked() {
	if that.settings.TurnTimeout <= 0 {
		return
	}

	that.stopTurnTimerLocked()

	epoch, moves := that.epoch, that.match.Moves
	that.turnTimer = time.AfterFunc(that.settings.TurnTimeout, func() {
		that.expireTurn(epoch, moves)
	})
}

func (that *Room) stopTurnTimerLocked() {
	if that.turnTimer != nil {
		that.turnTimer.Stop()
		that.turnTimer = nil
	}
}

func (that *Room) expireTurn(epoch uint64, moves int) {
	that.mu.Lock()
	finish := that.expireTurnLocked(epoch, moves)
	that.mu.Unlock()

	that.emitFinish(finish)
}

// expireTurnLocked - the player to move forfeits unless a move landed since the timer was armed.
func (that *Room) expireTurnLocked(epoch uint64, moves int) *Finish {
	if that.status != StatusPlaying || that.epoch != epoch || that.match.Moves != moves {
		return nil
	}

	loser := that.match.PlayerOf(that.match.Turn)
	winner := that.match.Opponent(loser)
	that.match.Finish(winner)

	that.broadcastLocked(protocol.Envelope{
		Type:    protocol.TypeGameEnd,
		Payload: protocol.GameEndPayload{Winner: winner, Reason: protocol.ReasonTimeout},
	})

	that.logger.Info("turn timed out", "method", "expireTurn", "loser", loser, "winner", winner)

	return that.finishLocked(protocol.ReasonTimeout, winner, loser)
}
