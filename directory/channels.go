package directory

import (
	"unicode/utf8"

	"huddle/domain"
	"huddle/errors"
)

const maxChannelName = 20

// CreateChannel creates a channel with the creator as its first owner
// and member.
func (d *Directory) CreateChannel(creator domain.UserID, name string, public bool) (domain.ChannelID, error) {
	if utf8.RuneCountInString(name) > maxChannelName {
		return 0, errors.Invalidf("channel name is more than %d characters", maxChannelName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	ch := &Channel{
		ID:      d.nextChannel,
		Name:    name,
		Public:  public,
		Owners:  domain.UserSet{creator: {}},
		Members: domain.UserSet{creator: {}},
	}
	d.nextChannel++
	d.channels[ch.ID] = ch
	return ch.ID, nil
}

func (d *Directory) channel(id domain.ChannelID) (*Channel, error) {
	ch, ok := d.channels[id]
	if !ok {
		return nil, errors.Invalidf("channel %d does not exist", id)
	}
	return ch, nil
}

// Join adds the user to a channel: public channels are open to anyone,
// private channels only to global owners.
func (d *Directory) Join(user domain.UserID, channel domain.ChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, err := d.channel(channel)
	if err != nil {
		return err
	}
	if ch.Members.Has(user) {
		return errors.Invalidf("user %d is already in channel %d", user, channel)
	}
	if !ch.Public && d.users[user].Permission != PermOwner {
		return errors.Unauthorizedf("channel %d is private", channel)
	}
	ch.Members[user] = struct{}{}
	return nil
}

// Invite adds the target to the channel on behalf of a member.
func (d *Directory) Invite(inviter domain.UserID, channel domain.ChannelID, target domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, err := d.channel(channel)
	if err != nil {
		return err
	}
	if _, exists := d.users[target]; !exists {
		return errors.Invalidf("user %d does not exist", target)
	}
	if !ch.Members.Has(inviter) {
		return errors.Unauthorizedf("user %d is not a member of channel %d", inviter, channel)
	}
	if ch.Members.Has(target) {
		return errors.Invalidf("user %d is already in channel %d", target, channel)
	}
	ch.Members[target] = struct{}{}
	return nil
}

// Leave removes the user from the member set; removal from the member
// set also removes from the owner set, keeping owners a subset of
// members at all times.
func (d *Directory) Leave(user domain.UserID, channel domain.ChannelID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, err := d.channel(channel)
	if err != nil {
		return err
	}
	if !ch.Members.Has(user) {
		return errors.Unauthorizedf("user %d is not a member of channel %d", user, channel)
	}
	delete(ch.Members, user)
	delete(ch.Owners, user)
	return nil
}

// AddOwner promotes a member to channel owner. The caller must already
// be a channel owner or the global owner.
func (d *Directory) AddOwner(caller domain.UserID, channel domain.ChannelID, target domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, err := d.channel(channel)
	if err != nil {
		return err
	}
	if !ch.Owners.Has(caller) && d.users[caller].Permission != PermOwner {
		return errors.Unauthorizedf("user %d is not an owner of channel %d", caller, channel)
	}
	if !ch.Members.Has(target) {
		return errors.Invalidf("user %d is not a member of channel %d", target, channel)
	}
	if ch.Owners.Has(target) {
		return errors.Invalidf("user %d is already an owner of channel %d", target, channel)
	}
	ch.Owners[target] = struct{}{}
	return nil
}

// RemoveOwner demotes a channel owner back to plain member.
func (d *Directory) RemoveOwner(caller domain.UserID, channel domain.ChannelID, target domain.UserID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, err := d.channel(channel)
	if err != nil {
		return err
	}
	if !ch.Owners.Has(caller) && d.users[caller].Permission != PermOwner {
		return errors.Unauthorizedf("user %d is not an owner of channel %d", caller, channel)
	}
	if !ch.Owners.Has(target) {
		return errors.Invalidf("user %d is not an owner of channel %d", target, channel)
	}
	delete(ch.Owners, target)
	return nil
}

// PermissionChange sets a user's global permission level. Only a global
// owner may call it, and the last global owner cannot demote themself.
func (d *Directory) PermissionChange(admin, target domain.UserID, level Permission) error {
	if level != PermOwner && level != PermMember {
		return errors.Invalidf("permission level %d is not valid", level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.users[admin] == nil || d.users[admin].Permission != PermOwner {
		return errors.Unauthorizedf("user %d is not a global owner", admin)
	}
	tgt, exists := d.users[target]
	if !exists {
		return errors.Invalidf("user %d does not exist", target)
	}
	if level == PermMember && admin == target && d.ownerCount() == 1 {
		return errors.Invalidf("cannot demote the only global owner")
	}
	tgt.Permission = level
	return nil
}

func (d *Directory) ownerCount() int {
	count := 0
	for _, u := range d.users {
		if u.Permission == PermOwner {
			count++
		}
	}
	return count
}
