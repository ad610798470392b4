// Package domain contains the core concepts of the messaging system.
// This file defines Message and its reaction state. Messages are mutated
// in place by edit/pin/react and destroyed by remove; identity is global
// and never reused.
package domain

type UserID int

type ChannelID int

// MessageID values are allocated from a single counter shared by every
// channel: strictly increasing across the store's lifetime, never
// contiguous within a channel after removals or deferred sends.
type MessageID int

type ReactionKind int

// ReactLike is the only reaction kind currently supported.
const ReactLike ReactionKind = 1

type UserSet map[UserID]struct{}

func (s UserSet) Has(u UserID) bool {
	_, ok := s[u]
	return ok
}

type Message struct {
	ID        MessageID
	Sender    UserID
	Body      string
	CreatedAt int64 // unix seconds, set at insertion (for deferred sends: the requested fire time)
	Pinned    bool
	Reacts    map[ReactionKind]UserSet
}

// Reacted reports whether the user currently holds a reaction of the
// given kind on the message.
func (m *Message) Reacted(kind ReactionKind, u UserID) bool {
	set, ok := m.Reacts[kind]
	return ok && set.Has(u)
}

// Clone returns a deep copy safe to hand to readers after the ledger lock
// is released.
func (m *Message) Clone() Message {
	out := *m
	out.Reacts = make(map[ReactionKind]UserSet, len(m.Reacts))
	for kind, users := range m.Reacts {
		set := make(UserSet, len(users))
		for u := range users {
			set[u] = struct{}{}
		}
		out.Reacts[kind] = set
	}
	return out
}
