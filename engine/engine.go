// Package engine implements the message lifecycle: send, edit, remove,
// pin, react and paginated retrieval. Every operation composes the role
// booleans from auth.Check with the ledger's locked primitives; nothing
// here rescans membership lists on its own.
package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"huddle/auth"
	"huddle/contract"
	"huddle/domain"
	"huddle/domain/event"
	"huddle/errors"
	"huddle/ledger"
)

const maxBodyLen = 1000

type Engine struct {
	dir    contract.Directory
	ledger *ledger.Ledger
	log    *slog.Logger
	events chan event.DomainEvent
}

func New(dir contract.Directory, l *ledger.Ledger, log *slog.Logger, bufferSize int) *Engine {
	return &Engine{
		dir:    dir,
		ledger: l,
		log:    log,
		events: make(chan event.DomainEvent, bufferSize),
	}
}

// Events exposes the best-effort event stream consumed by the fanout
// worker. Core correctness never depends on delivery.
func (e *Engine) Events() <-chan event.DomainEvent {
	return e.events
}

func (e *Engine) publish(evt event.DomainEvent) {
	select {
	case e.events <- evt:
	default:
		e.log.Warn(fmt.Sprintf("Event channel full for channel %d, dropping event", evt.ChannelID()))
	}
}

// ValidateBody enforces the 1-1000 character constraint shared by Send
// and the deferred-send path. Standup flushes bypass it.
func ValidateBody(body string) error {
	if utf8.RuneCountInString(body) > maxBodyLen {
		return errors.Invalidf("message is more than %d characters", maxBodyLen)
	}
	if strings.TrimSpace(body) == "" {
		return errors.Invalidf("message is empty or contains only whitespace")
	}
	return nil
}

// Send appends a message to the channel, timestamped at call time.
func (e *Engine) Send(user domain.UserID, channel domain.ChannelID, body string) (domain.MessageID, error) {
	role, err := auth.Check(e.dir, user, channel)
	if err != nil {
		return 0, err
	}
	if !role.Member {
		return 0, errors.Unauthorizedf("user %d has not joined channel %d", user, channel)
	}
	if err := ValidateBody(body); err != nil {
		return 0, err
	}
	now := time.Now().Unix()
	id := e.ledger.Append(channel, user, body, now)
	e.publish(event.MessagePosted{ID: id, Channel: channel, Sender: user, Body: body, At: now})
	return id, nil
}

// Deliver inserts a message under a previously reserved identifier,
// bypassing membership and body validation. Used by the deferred
// scheduler at fire time and by the standup flush, both of which already
// validated (or deliberately skip validating) at request time.
func (e *Engine) Deliver(channel domain.ChannelID, id domain.MessageID, sender domain.UserID, body string, at int64) {
	e.ledger.AppendReserved(channel, id, sender, body, at)
	e.publish(event.MessagePosted{ID: id, Channel: channel, Sender: sender, Body: body, At: at})
}

// DeliverNow allocates an identifier and appends in one critical
// section, bypassing validation. Used by the standup flush, whose packed
// body legitimately escapes the normal length constraint.
func (e *Engine) DeliverNow(channel domain.ChannelID, sender domain.UserID, body string) domain.MessageID {
	now := time.Now().Unix()
	id := e.ledger.Append(channel, sender, body, now)
	e.publish(event.MessagePosted{ID: id, Channel: channel, Sender: sender, Body: body, At: now})
	return id
}

// Messages returns a pagination window of the channel's sequence,
// oldest-first. An empty channel short-circuits before the membership
// check; that early return is part of the contract.
func (e *Engine) Messages(user domain.UserID, channel domain.ChannelID, start int) ([]domain.Message, int, error) {
	role, err := auth.Check(e.dir, user, channel)
	if err != nil {
		return nil, 0, err
	}
	if e.ledger.Count(channel) == 0 {
		return []domain.Message{}, ledger.NoMore, nil
	}
	if !role.Member {
		return nil, 0, errors.Unauthorizedf("user %d is not a member of channel %d", user, channel)
	}
	return e.ledger.Page(channel, start)
}

// canTouch reports whether the user may edit or remove the message:
// its sender, a channel owner, or the global owner.
func (e *Engine) canTouch(user domain.UserID, msg domain.Message, channel domain.ChannelID) (bool, error) {
	if msg.Sender == user {
		return true, nil
	}
	role, err := auth.Check(e.dir, user, channel)
	if err != nil {
		return false, err
	}
	return role.CanModerate(), nil
}

// Edit replaces the message body in place, leaving the creation
// timestamp untouched. An empty newBody deletes the message entirely.
func (e *Engine) Edit(user domain.UserID, id domain.MessageID, newBody string) error {
	msg, channel, err := e.ledger.Find(id)
	if err != nil {
		return err
	}
	ok, err := e.canTouch(user, msg, channel)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Unauthorizedf("user %d is neither the sender nor an owner", user)
	}
	if newBody == "" {
		return e.remove(id)
	}
	return e.ledger.Update(id, func(m *domain.Message) error {
		m.Body = newBody
		return nil
	})
}

// Remove deletes the message from its channel's sequence. Positions
// renumber; identifiers never do.
func (e *Engine) Remove(user domain.UserID, id domain.MessageID) error {
	msg, channel, err := e.ledger.Find(id)
	if err != nil {
		return err
	}
	ok, err := e.canTouch(user, msg, channel)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Unauthorizedf("user %d is neither the sender nor an owner", user)
	}
	return e.remove(id)
}

func (e *Engine) remove(id domain.MessageID) error {
	channel, err := e.ledger.Remove(id)
	if err != nil {
		return err
	}
	e.publish(event.MessageRemoved{ID: id, Channel: channel})
	return nil
}

func (e *Engine) setPinned(user domain.UserID, id domain.MessageID, pinned bool) error {
	_, channel, err := e.ledger.Find(id)
	if err != nil {
		return err
	}
	role, err := auth.Check(e.dir, user, channel)
	if err != nil {
		return err
	}
	// Membership and ownership are distinct failures: a non-member owner
	// elsewhere gets the first, a plain member the second.
	if !role.Member && !role.GlobalOwner {
		return errors.Unauthorizedf("user %d is not a member of the channel holding message %d", user, id)
	}
	if !role.CanModerate() {
		return errors.Unauthorizedf("user %d is not an owner", user)
	}
	return e.ledger.Update(id, func(m *domain.Message) error {
		if m.Pinned == pinned {
			if pinned {
				return errors.Invalidf("message %d is already pinned", id)
			}
			return errors.Invalidf("message %d is already unpinned", id)
		}
		m.Pinned = pinned
		return nil
	})
}

func (e *Engine) Pin(user domain.UserID, id domain.MessageID) error {
	return e.setPinned(user, id, true)
}

func (e *Engine) Unpin(user domain.UserID, id domain.MessageID) error {
	return e.setPinned(user, id, false)
}

// React records the user's reaction of the given kind. A membership
// failure here is InvalidRequest, not Unauthorized; the asymmetry with
// Send is deliberate and pinned by tests.
func (e *Engine) React(user domain.UserID, id domain.MessageID, kind domain.ReactionKind) error {
	if kind != domain.ReactLike {
		return errors.Invalidf("react kind %d is not supported", kind)
	}
	_, channel, err := e.ledger.Find(id)
	if err != nil {
		return err
	}
	role, err := auth.Check(e.dir, user, channel)
	if err != nil {
		return err
	}
	if !role.Member {
		return errors.Invalidf("user %d is not part of the channel", user)
	}
	return e.ledger.Update(id, func(m *domain.Message) error {
		if m.Reacted(kind, user) {
			return errors.Invalidf("message %d already has a react by user %d", id, user)
		}
		set, ok := m.Reacts[kind]
		if !ok {
			set = make(domain.UserSet)
			m.Reacts[kind] = set
		}
		set[user] = struct{}{}
		return nil
	})
}

// Unreact removes the user's reaction; fails when no such reaction
// exists, including when the message has no record for the kind at all.
func (e *Engine) Unreact(user domain.UserID, id domain.MessageID, kind domain.ReactionKind) error {
	if kind != domain.ReactLike {
		return errors.Invalidf("react kind %d is not supported", kind)
	}
	_, channel, err := e.ledger.Find(id)
	if err != nil {
		return err
	}
	role, err := auth.Check(e.dir, user, channel)
	if err != nil {
		return err
	}
	if !role.Member {
		return errors.Invalidf("user %d is not part of the channel", user)
	}
	return e.ledger.Update(id, func(m *domain.Message) error {
		if !m.Reacted(kind, user) {
			return errors.Invalidf("user %d has not reacted to message %d", user, id)
		}
		delete(m.Reacts[kind], user)
		return nil
	})
}
