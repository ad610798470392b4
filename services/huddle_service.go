// Package services exposes the token-facing surface: one method per core
// operation, each validating the opaque session token through the
// directory before delegating. The surrounding transport (HTTP or
// otherwise) is an external collaborator and owns serialization.
package services

import (
	"time"

	"huddle/deferred"
	"huddle/directory"
	"huddle/domain"
	"huddle/engine"
	"huddle/standup"
)

type IHuddleService interface {
	Register(req directory.RegisterRequest) (domain.UserID, string, error)
	Login(email, password string) (domain.UserID, string, error)
	Logout(token string) (bool, error)

	CreateChannel(token, name string, public bool) (domain.ChannelID, error)
	JoinChannel(token string, channel domain.ChannelID) error
	InviteToChannel(token string, channel domain.ChannelID, target domain.UserID) error
	LeaveChannel(token string, channel domain.ChannelID) error
	AddOwner(token string, channel domain.ChannelID, target domain.UserID) error
	RemoveOwner(token string, channel domain.ChannelID, target domain.UserID) error
	ChannelDetails(token string, channel domain.ChannelID) (directory.ChannelDetails, error)
	ListChannels(token string) ([]directory.ChannelSummary, error)
	ListAllChannels(token string) ([]directory.ChannelSummary, error)
	PermissionChange(token string, target domain.UserID, level directory.Permission) error

	Send(token string, channel domain.ChannelID, body string) (domain.MessageID, error)
	SendLater(token string, channel domain.ChannelID, body string, fireAt int64) (domain.MessageID, error)
	Messages(token string, channel domain.ChannelID, start int) ([]domain.Message, int, error)
	Edit(token string, id domain.MessageID, newBody string) error
	Remove(token string, id domain.MessageID) error
	Pin(token string, id domain.MessageID) error
	Unpin(token string, id domain.MessageID) error
	React(token string, id domain.MessageID, kind domain.ReactionKind) error
	Unreact(token string, id domain.MessageID, kind domain.ReactionKind) error

	StandupStart(token string, channel domain.ChannelID, length time.Duration) (int64, error)
	StandupActive(token string, channel domain.ChannelID) (bool, int64, error)
	StandupSend(token string, channel domain.ChannelID, text string) error
}

type Huddle struct {
	dir       *directory.Directory
	engine    *engine.Engine
	scheduler *deferred.Scheduler
	standups  *standup.Manager
}

func NewHuddle(dir *directory.Directory, e *engine.Engine, s *deferred.Scheduler, m *standup.Manager) *Huddle {
	return &Huddle{dir: dir, engine: e, scheduler: s, standups: m}
}

func (h *Huddle) Register(req directory.RegisterRequest) (domain.UserID, string, error) {
	return h.dir.Register(req)
}

func (h *Huddle) Login(email, password string) (domain.UserID, string, error) {
	return h.dir.Login(email, password)
}

func (h *Huddle) Logout(token string) (bool, error) {
	if _, err := h.dir.ValidateSession(token); err != nil {
		return false, err
	}
	return h.dir.Logout(token), nil
}

func (h *Huddle) CreateChannel(token, name string, public bool) (domain.ChannelID, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return 0, err
	}
	return h.dir.CreateChannel(user, name, public)
}

func (h *Huddle) JoinChannel(token string, channel domain.ChannelID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.dir.Join(user, channel)
}

func (h *Huddle) InviteToChannel(token string, channel domain.ChannelID, target domain.UserID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.dir.Invite(user, channel, target)
}

func (h *Huddle) LeaveChannel(token string, channel domain.ChannelID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.dir.Leave(user, channel)
}

func (h *Huddle) AddOwner(token string, channel domain.ChannelID, target domain.UserID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.dir.AddOwner(user, channel, target)
}

func (h *Huddle) RemoveOwner(token string, channel domain.ChannelID, target domain.UserID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.dir.RemoveOwner(user, channel, target)
}

func (h *Huddle) ChannelDetails(token string, channel domain.ChannelID) (directory.ChannelDetails, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return directory.ChannelDetails{}, err
	}
	return h.dir.ChannelDetails(user, channel)
}

func (h *Huddle) ListChannels(token string) ([]directory.ChannelSummary, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	return h.dir.ListChannels(user), nil
}

func (h *Huddle) ListAllChannels(token string) ([]directory.ChannelSummary, error) {
	if _, err := h.dir.ValidateSession(token); err != nil {
		return nil, err
	}
	return h.dir.ListAllChannels(), nil
}

func (h *Huddle) PermissionChange(token string, target domain.UserID, level directory.Permission) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.dir.PermissionChange(user, target, level)
}

func (h *Huddle) Send(token string, channel domain.ChannelID, body string) (domain.MessageID, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return 0, err
	}
	return h.engine.Send(user, channel, body)
}

func (h *Huddle) SendLater(token string, channel domain.ChannelID, body string, fireAt int64) (domain.MessageID, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return 0, err
	}
	return h.scheduler.SendLater(user, channel, body, fireAt)
}

func (h *Huddle) Messages(token string, channel domain.ChannelID, start int) ([]domain.Message, int, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return nil, 0, err
	}
	return h.engine.Messages(user, channel, start)
}

func (h *Huddle) Edit(token string, id domain.MessageID, newBody string) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.engine.Edit(user, id, newBody)
}

func (h *Huddle) Remove(token string, id domain.MessageID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.engine.Remove(user, id)
}

func (h *Huddle) Pin(token string, id domain.MessageID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.engine.Pin(user, id)
}

func (h *Huddle) Unpin(token string, id domain.MessageID) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.engine.Unpin(user, id)
}

func (h *Huddle) React(token string, id domain.MessageID, kind domain.ReactionKind) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.engine.React(user, id, kind)
}

func (h *Huddle) Unreact(token string, id domain.MessageID, kind domain.ReactionKind) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.engine.Unreact(user, id, kind)
}

func (h *Huddle) StandupStart(token string, channel domain.ChannelID, length time.Duration) (int64, error) {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return 0, err
	}
	return h.standups.Start(user, channel, length)
}

func (h *Huddle) StandupActive(token string, channel domain.ChannelID) (bool, int64, error) {
	if _, err := h.dir.ValidateSession(token); err != nil {
		return false, 0, err
	}
	return h.standups.IsActive(channel)
}

func (h *Huddle) StandupSend(token string, channel domain.ChannelID, text string) error {
	user, err := h.dir.ValidateSession(token)
	if err != nil {
		return err
	}
	return h.standups.Send(user, channel, text)
}
