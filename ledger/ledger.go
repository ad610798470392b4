// Package ledger owns message identity allocation, the per-channel
// ordered message sequences and the pagination algorithm. All state is
// guarded by one RWMutex; request handlers and timer-fired tasks go
// through the same methods, so an allocation, append, pin toggle or
// removal is atomic with respect to everything else.
package ledger

import (
	"sync"

	"huddle/domain"
	"huddle/errors"
)

// PageSize is the maximum window returned by Page.
const PageSize = 50

// NoMore is the end marker returned when a page exhausts the channel.
const NoMore = -1

type Ledger struct {
	mu     sync.RWMutex
	nextID domain.MessageID
	seqs   map[domain.ChannelID][]*domain.Message
	index  map[domain.MessageID]domain.ChannelID
}

func New() *Ledger {
	return &Ledger{
		nextID: 1,
		seqs:   make(map[domain.ChannelID][]*domain.Message),
		index:  make(map[domain.MessageID]domain.ChannelID),
	}
}

// Reserve consumes the next identifier without inserting a message.
// Deferred sends hand the id to the caller synchronously and insert at
// fire time; the id is spent even if the insertion never happens.
func (l *Ledger) Reserve() domain.MessageID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allocate()
}

func (l *Ledger) allocate() domain.MessageID {
	id := l.nextID
	l.nextID++
	return id
}

// Append allocates an identifier and appends a new message to the
// channel's sequence in one critical section.
func (l *Ledger) Append(channel domain.ChannelID, sender domain.UserID, body string, at int64) domain.MessageID {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.allocate()
	l.insert(channel, id, sender, body, at)
	return id
}

// AppendReserved inserts a message under an identifier previously
// obtained from Reserve.
func (l *Ledger) AppendReserved(channel domain.ChannelID, id domain.MessageID, sender domain.UserID, body string, at int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insert(channel, id, sender, body, at)
}

func (l *Ledger) insert(channel domain.ChannelID, id domain.MessageID, sender domain.UserID, body string, at int64) {
	msg := &domain.Message{
		ID:        id,
		Sender:    sender,
		Body:      body,
		CreatedAt: at,
		Reacts:    make(map[domain.ReactionKind]domain.UserSet),
	}
	l.seqs[channel] = append(l.seqs[channel], msg)
	l.index[id] = channel
}

// Find returns a copy of the message and the channel holding it.
func (l *Ledger) Find(id domain.MessageID) (domain.Message, domain.ChannelID, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	channel, msg, _, err := l.locate(id)
	if err != nil {
		return domain.Message{}, 0, err
	}
	return msg.Clone(), channel, nil
}

func (l *Ledger) locate(id domain.MessageID) (domain.ChannelID, *domain.Message, int, error) {
	channel, ok := l.index[id]
	if !ok {
		return 0, nil, 0, errors.Invalidf("message %d does not exist", id)
	}
	for pos, msg := range l.seqs[channel] {
		if msg.ID == id {
			return channel, msg, pos, nil
		}
	}
	// Index and sequence are only ever touched together under mu.
	panic("ledger: index entry without sequence entry")
}

// Update applies fn to the message under the write lock. fn mutates the
// message in place; an error from fn aborts with no mutation observable
// as long as fn itself fails before touching the message.
func (l *Ledger) Update(id domain.MessageID, fn func(*domain.Message) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, msg, _, err := l.locate(id)
	if err != nil {
		return err
	}
	return fn(msg)
}

// Remove deletes the message from its channel's sequence. Later messages
// shift down one position; identifiers are untouched.
func (l *Ledger) Remove(id domain.MessageID) (domain.ChannelID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	channel, _, pos, err := l.locate(id)
	if err != nil {
		return 0, err
	}
	seq := l.seqs[channel]
	l.seqs[channel] = append(seq[:pos], seq[pos+1:]...)
	delete(l.index, id)
	return channel, nil
}

// Count returns the number of messages currently in the channel.
func (l *Ledger) Count(channel domain.ChannelID) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.seqs[channel])
}

// Page returns up to PageSize messages oldest-first beginning at start
// (index 0 is the first message ever sent in the channel) and the end
// marker: start+returned when more messages remain past the window,
// NoMore otherwise. A channel with zero messages yields an empty window
// and NoMore regardless of start; a start beyond the current count fails
// with InvalidRequest. The snapshot is taken under the read lock, so a
// concurrent timer-fired append is either fully visible or not at all.
func (l *Ledger) Page(channel domain.ChannelID, start int) ([]domain.Message, int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seq := l.seqs[channel]
	if len(seq) == 0 {
		return []domain.Message{}, NoMore, nil
	}
	if start < 0 || start > len(seq) {
		return nil, 0, errors.Invalidf("start index out of range")
	}

	limit := start + PageSize
	if limit > len(seq) {
		limit = len(seq)
	}
	window := make([]domain.Message, 0, limit-start)
	for _, msg := range seq[start:limit] {
		window = append(window, msg.Clone())
	}

	end := start + len(window)
	if end >= len(seq) {
		end = NoMore
	}
	return window, end, nil
}
