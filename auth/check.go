package auth

import (
	"huddle/contract"
	"huddle/domain"
	"huddle/errors"
)

// Role is the result of the authorization check for a (user, channel)
// pair: three independent booleans every permission decision is composed
// from. No operation may re-derive these by scanning membership lists.
type Role struct {
	Member       bool
	ChannelOwner bool
	GlobalOwner  bool
}

// CanModerate reports whether the user may act on other members' messages
// (edit, remove) and toggle pins in the channel.
func (r Role) CanModerate() bool {
	return r.ChannelOwner || r.GlobalOwner
}

// Check computes the role of a session-validated user in a channel.
// Fails with InvalidRequest when the channel does not exist.
func Check(dir contract.Directory, user domain.UserID, channel domain.ChannelID) (Role, error) {
	if !dir.ChannelExists(channel) {
		return Role{}, errors.Invalidf("channel %d does not exist", channel)
	}
	return Role{
		Member:       dir.ChannelMembers(channel).Has(user),
		ChannelOwner: dir.ChannelOwners(channel).Has(user),
		GlobalOwner:  dir.IsGlobalOwner(user),
	}, nil
}
