package event

import (
	"huddle/domain"
)

type DomainEvent interface {
	ChannelID() domain.ChannelID
}

type MessagePosted struct {
	ID      domain.MessageID
	Channel domain.ChannelID
	Sender  domain.UserID
	Body    string
	At      int64
}

func (m MessagePosted) ChannelID() domain.ChannelID {
	return m.Channel
}

type MessageRemoved struct {
	ID      domain.MessageID
	Channel domain.ChannelID
}

func (m MessageRemoved) ChannelID() domain.ChannelID {
	return m.Channel
}
