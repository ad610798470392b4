// Package deferred implements scheduled sends: the identifier is
// reserved and returned synchronously, the insertion happens when the
// timer heap fires.
package deferred

import (
	"context"
	"log/slog"
	"time"

	"huddle/auth"
	"huddle/contract"
	"huddle/domain"
	"huddle/engine"
	"huddle/errors"
	"huddle/ledger"
	"huddle/runtime"
)

type Scheduler struct {
	dir    contract.Directory
	ledger *ledger.Ledger
	engine *engine.Engine
	timers *runtime.TimerHeap
	log    *slog.Logger
}

func NewScheduler(dir contract.Directory, l *ledger.Ledger, e *engine.Engine, timers *runtime.TimerHeap, log *slog.Logger) *Scheduler {
	return &Scheduler{dir: dir, ledger: l, engine: e, timers: timers, log: log}
}

// SendLater validates membership and body exactly as a plain send, then
// reserves an identifier and arranges a one-shot fire event. The caller
// holds the identifier before the message is visible in any pagination
// window; the id is consumed even though insertion happens later.
func (s *Scheduler) SendLater(user domain.UserID, channel domain.ChannelID, body string, fireAt int64) (domain.MessageID, error) {
	role, err := auth.Check(s.dir, user, channel)
	if err != nil {
		return 0, err
	}
	if !role.Member {
		return 0, errors.Unauthorizedf("user %d has not joined channel %d", user, channel)
	}
	if err := engine.ValidateBody(body); err != nil {
		return 0, err
	}
	if fireAt <= time.Now().Unix() {
		return 0, errors.Invalidf("scheduled time is not in the future")
	}

	id := s.ledger.Reserve()
	s.timers.Schedule(time.Unix(fireAt, 0), func(ctx context.Context) {
		s.fire(channel, id, user, body, fireAt)
	})
	return id, nil
}

// fire inserts the message with the originally captured sender, channel
// and requested fire time (not the actual fire time, to tolerate
// scheduler jitter). The insertion is unconditional: the identifier was
// already promised to the caller, so a channel or membership change
// since scheduling is logged, never acted on.
func (s *Scheduler) fire(channel domain.ChannelID, id domain.MessageID, sender domain.UserID, body string, fireAt int64) {
	if !s.dir.ChannelExists(channel) {
		s.log.Warn("Deferred send target channel no longer exists, inserting anyway",
			"channel", channel, "message", id)
	} else if !s.dir.ChannelMembers(channel).Has(sender) {
		s.log.Warn("Deferred send sender is no longer a member, inserting anyway",
			"channel", channel, "message", id, "sender", sender)
	}
	s.engine.Deliver(channel, id, sender, body, fireAt)
	s.log.Debug("Deferred message delivered", "channel", channel, "message", id)
}
