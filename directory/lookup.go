package directory

import (
	"sort"

	"github.com/samber/lo"

	"huddle/domain"
	"huddle/errors"
)

// The read primitives below implement contract.Directory. Sets are
// cloned under the read lock so callers never share live map state with
// concurrent mutations.

func (d *Directory) ChannelExists(channel domain.ChannelID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.channels[channel]
	return ok
}

func (d *Directory) ChannelMembers(channel domain.ChannelID) domain.UserSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[channel]
	if !ok {
		return nil
	}
	return cloneSet(ch.Members)
}

func (d *Directory) ChannelOwners(channel domain.ChannelID) domain.UserSet {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.channels[channel]
	if !ok {
		return nil
	}
	return cloneSet(ch.Owners)
}

func (d *Directory) IsGlobalOwner(user domain.UserID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[user]
	return ok && u.Permission == PermOwner
}

func (d *Directory) HandleOf(user domain.UserID) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[user]
	if !ok {
		return ""
	}
	return u.Handle
}

func cloneSet(set domain.UserSet) domain.UserSet {
	out := make(domain.UserSet, len(set))
	for u := range set {
		out[u] = struct{}{}
	}
	return out
}

// Profile is the public view of a user.
type Profile struct {
	ID        domain.UserID
	Email     string
	NameFirst string
	NameLast  string
	Handle    string
}

func (d *Directory) ProfileOf(user domain.UserID) (Profile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[user]
	if !ok {
		return Profile{}, errors.Invalidf("user %d does not exist", user)
	}
	return toProfile(u), nil
}

func toProfile(u *User) Profile {
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		NameFirst: u.NameFirst,
		NameLast:  u.NameLast,
		Handle:    u.Handle,
	}
}

// ChannelDetails returns the channel name plus resolved owner and member
// profiles. Only members may look.
type ChannelDetails struct {
	Name    string
	Public  bool
	Owners  []Profile
	Members []Profile
}

func (d *Directory) ChannelDetails(user domain.UserID, channel domain.ChannelID) (ChannelDetails, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, err := d.channel(channel)
	if err != nil {
		return ChannelDetails{}, err
	}
	if !ch.Members.Has(user) {
		return ChannelDetails{}, errors.Unauthorizedf("user %d is not a member of channel %d", user, channel)
	}
	return ChannelDetails{
		Name:    ch.Name,
		Public:  ch.Public,
		Owners:  d.profiles(ch.Owners),
		Members: d.profiles(ch.Members),
	}, nil
}

func (d *Directory) profiles(set domain.UserSet) []Profile {
	ids := lo.Keys(set)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return lo.Map(ids, func(id domain.UserID, _ int) Profile {
		return toProfile(d.users[id])
	})
}

// ChannelSummary is one entry of a channel listing.
type ChannelSummary struct {
	ID     domain.ChannelID
	Name   string
	Public bool
}

// ListChannels returns the channels the user belongs to, id-ordered.
func (d *Directory) ListChannels(user domain.UserID) []ChannelSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []ChannelSummary
	for _, ch := range d.channels {
		if ch.Members.Has(user) {
			out = append(out, ChannelSummary{ID: ch.ID, Name: ch.Name, Public: ch.Public})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListAllChannels returns every channel regardless of membership.
func (d *Directory) ListAllChannels() []ChannelSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := lo.MapToSlice(d.channels, func(_ domain.ChannelID, ch *Channel) ChannelSummary {
		return ChannelSummary{ID: ch.ID, Name: ch.Name, Public: ch.Public}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
