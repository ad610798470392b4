// Package standup implements the per-channel buffering state machine:
// start opens a timed window, sends buffer (handle, text) lines, and the
// fire event packs the buffer into a single message.
package standup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"huddle/auth"
	"huddle/contract"
	"huddle/domain"
	"huddle/engine"
	"huddle/errors"
	"huddle/runtime"
)

const maxLineLen = 1000

type line struct {
	handle string
	text   string
}

// session is one Active standup. It exists only between start and the
// flush; Idle channels have no entry in the manager's map.
type session struct {
	starter domain.UserID
	finish  int64
	buffer  []line
}

type Manager struct {
	mu       sync.Mutex
	dir      contract.Directory
	engine   *engine.Engine
	timers   *runtime.TimerHeap
	log      *slog.Logger
	sessions map[domain.ChannelID]*session
}

func NewManager(dir contract.Directory, e *engine.Engine, timers *runtime.TimerHeap, log *slog.Logger) *Manager {
	return &Manager{
		dir:      dir,
		engine:   e,
		timers:   timers,
		log:      log,
		sessions: make(map[domain.ChannelID]*session),
	}
}

// Start transitions the channel Idle -> Active and arms the one-shot
// flush. The fire event captures only ids and the finish time, so it
// fires regardless of what happens to the initiating request or the
// starter's membership afterwards.
func (m *Manager) Start(user domain.UserID, channel domain.ChannelID, length time.Duration) (int64, error) {
	if !m.dir.ChannelExists(channel) {
		return 0, errors.Invalidf("channel %d does not exist", channel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, active := m.sessions[channel]; active {
		return 0, errors.Invalidf("there is already a standup active in channel %d", channel)
	}

	finish := time.Now().Add(length).Unix()
	m.sessions[channel] = &session{starter: user, finish: finish}
	m.timers.Schedule(time.Now().Add(length), func(ctx context.Context) {
		m.flush(channel)
	})
	return finish, nil
}

// IsActive reports whether a standup is running in the channel and, if
// so, when it finishes. Pure query, no side effects.
func (m *Manager) IsActive(channel domain.ChannelID) (bool, int64, error) {
	if !m.dir.ChannelExists(channel) {
		return false, 0, errors.Invalidf("channel %d does not exist", channel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, active := m.sessions[channel]
	if !active {
		return false, 0, nil
	}
	return true, sess.finish, nil
}

// Send buffers one line for the active standup. The 1000-character
// ceiling applies per line, not to the eventual packed message. No
// Message is created here.
func (m *Manager) Send(user domain.UserID, channel domain.ChannelID, text string) error {
	role, err := auth.Check(m.dir, user, channel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	sess, active := m.sessions[channel]
	if !active {
		return errors.Invalidf("no active standup in channel %d", channel)
	}
	if utf8.RuneCountInString(text) > maxLineLen {
		return errors.Invalidf("message is more than %d characters", maxLineLen)
	}
	if !role.Member {
		return errors.Unauthorizedf("user %d is not a member of channel %d", user, channel)
	}
	sess.buffer = append(sess.buffer, line{handle: m.dir.HandleOf(user), text: text})
	return nil
}

// flush packs the buffered lines into one message attributed to the
// starter and resets the channel to Idle. An empty buffer produces no
// message.
func (m *Manager) flush(channel domain.ChannelID) {
	m.mu.Lock()
	sess, active := m.sessions[channel]
	delete(m.sessions, channel)
	m.mu.Unlock()
	if !active {
		return
	}

	if len(sess.buffer) == 0 {
		m.log.Debug("Standup finished with empty buffer, no message created", "channel", channel)
		return
	}

	lines := make([]string, 0, len(sess.buffer))
	for _, l := range sess.buffer {
		lines = append(lines, fmt.Sprintf("%s: %s", l.handle, l.text))
	}
	id := m.engine.DeliverNow(channel, sess.starter, strings.Join(lines, "\n"))
	m.log.Debug("Standup flushed", "channel", channel, "message", id, "lines", len(lines))
}
