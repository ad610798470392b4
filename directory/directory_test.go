package directory

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"huddle/auth"
	"huddle/domain"
	"huddle/errors"
)

func newDirectory() *Directory {
	return New(auth.NewTokens("test-secret", time.Hour), slog.Default())
}

func register(t *testing.T, d *Directory, email, first, last string) (domain.UserID, string) {
	t.Helper()
	id, token, err := d.Register(RegisterRequest{
		Email:     email,
		Password:  "horse-battery-staple",
		NameFirst: first,
		NameLast:  last,
	})
	require.NoError(t, err)
	return id, token
}

func TestDirectory_Register_FirstUserIsGlobalOwner(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	first, _ := register(t, d, "ada@example.com", "Ada", "Lovelace")
	second, _ := register(t, d, "grace@example.com", "Grace", "Hopper")

	req.True(d.IsGlobalOwner(first))
	req.False(d.IsGlobalOwner(second))
}

func TestDirectory_Register_Validation(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	_, _, err := d.Register(RegisterRequest{Email: "not-an-email", Password: "long enough", NameFirst: "A", NameLast: "B"})
	req.True(errors.IsInvalid(err))

	_, _, err = d.Register(RegisterRequest{Email: "a@example.com", Password: "short", NameFirst: "A", NameLast: "B"})
	req.True(errors.IsInvalid(err))

	register(t, d, "taken@example.com", "First", "Claim")
	_, _, err = d.Register(RegisterRequest{Email: "taken@example.com", Password: "long enough", NameFirst: "Second", NameLast: "Claim"})
	req.True(errors.IsInvalid(err))
}

func TestDirectory_HandlesAreUniqueAndTruncated(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	a, _ := register(t, d, "one@example.com", "Jo", "Smith")
	b, _ := register(t, d, "two@example.com", "Jo", "Smith")
	req.Equal("josmith", d.HandleOf(a))
	req.Equal("josmith0", d.HandleOf(b))

	c, _ := register(t, d, "three@example.com", "Maximiliana", "Wolfeschlegel")
	req.Len([]rune(d.HandleOf(c)), 20)
}

func TestDirectory_Sessions(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	id, token := register(t, d, "ada@example.com", "Ada", "Lovelace")

	got, err := d.ValidateSession(token)
	req.NoError(err)
	req.Equal(id, got)

	_, err = d.ValidateSession("garbage-token")
	req.True(errors.IsUnauthorized(err))

	req.True(d.Logout(token))
	_, err = d.ValidateSession(token)
	req.True(errors.IsUnauthorized(err))
	req.False(d.Logout(token))

	_, token2, err := d.Login("ada@example.com", "horse-battery-staple")
	req.NoError(err)
	_, err = d.ValidateSession(token2)
	req.NoError(err)

	_, _, err = d.Login("ada@example.com", "wrong password")
	req.True(errors.IsInvalid(err))
	_, _, err = d.Login("nobody@example.com", "whatever")
	req.True(errors.IsInvalid(err))
}

func TestDirectory_ChannelMembership(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	owner, _ := register(t, d, "owner@example.com", "Olive", "Owner")
	guest, _ := register(t, d, "guest@example.com", "Gary", "Guest")

	ch, err := d.CreateChannel(owner, "general", true)
	req.NoError(err)
	req.True(d.ChannelExists(ch))
	req.True(d.ChannelMembers(ch).Has(owner))
	req.True(d.ChannelOwners(ch).Has(owner))

	_, err = d.CreateChannel(owner, "a channel name far too long", true)
	req.True(errors.IsInvalid(err))

	req.NoError(d.Join(guest, ch))
	req.True(d.ChannelMembers(ch).Has(guest))
	req.False(d.ChannelOwners(ch).Has(guest))

	err = d.Join(guest, ch)
	req.True(errors.IsInvalid(err))
}

func TestDirectory_PrivateChannelJoin(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	global, _ := register(t, d, "first@example.com", "Glo", "Bal")
	creator, _ := register(t, d, "creator@example.com", "Cre", "Ator")
	guest, _ := register(t, d, "guest@example.com", "Gue", "St")

	ch, err := d.CreateChannel(creator, "secret", false)
	req.NoError(err)

	err = d.Join(guest, ch)
	req.True(errors.IsUnauthorized(err))

	// The global owner walks into private channels.
	req.NoError(d.Join(global, ch))

	// A member can still invite anyone in.
	req.NoError(d.Invite(creator, ch, guest))
	req.True(d.ChannelMembers(ch).Has(guest))
}

func TestDirectory_LeaveKeepsOwnersSubsetOfMembers(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	owner, _ := register(t, d, "owner@example.com", "Olive", "Owner")
	other, _ := register(t, d, "other@example.com", "Oscar", "Other")

	ch, err := d.CreateChannel(owner, "general", true)
	req.NoError(err)
	req.NoError(d.Join(other, ch))
	req.NoError(d.AddOwner(owner, ch, other))
	req.True(d.ChannelOwners(ch).Has(other))

	// Leaving the member set removes ownership too.
	req.NoError(d.Leave(other, ch))
	req.False(d.ChannelMembers(ch).Has(other))
	req.False(d.ChannelOwners(ch).Has(other))
}

func TestDirectory_OwnerPromotion(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	owner, _ := register(t, d, "owner@example.com", "Olive", "Owner")
	member, _ := register(t, d, "member@example.com", "Mem", "Ber")
	outsider, _ := register(t, d, "out@example.com", "Out", "Sider")

	ch, err := d.CreateChannel(member, "general", true)
	req.NoError(err)
	req.NoError(d.Join(outsider, ch))

	err = d.AddOwner(outsider, ch, outsider)
	req.True(errors.IsUnauthorized(err))

	// Promoting a non-member or an existing owner is an input error.
	err = d.AddOwner(member, ch, owner)
	req.True(errors.IsInvalid(err))
	err = d.AddOwner(member, ch, member)
	req.True(errors.IsInvalid(err))

	req.NoError(d.AddOwner(member, ch, outsider))
	req.NoError(d.RemoveOwner(member, ch, outsider))
	err = d.RemoveOwner(member, ch, outsider)
	req.True(errors.IsInvalid(err))
}

func TestDirectory_PermissionChange(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	first, _ := register(t, d, "first@example.com", "Fir", "St")
	second, _ := register(t, d, "second@example.com", "Sec", "Ond")

	err := d.PermissionChange(second, second, PermOwner)
	req.True(errors.IsUnauthorized(err))

	err = d.PermissionChange(first, second, Permission(3))
	req.True(errors.IsInvalid(err))

	err = d.PermissionChange(first, domain.UserID(999), PermOwner)
	req.True(errors.IsInvalid(err))

	// The only global owner cannot demote themself.
	err = d.PermissionChange(first, first, PermMember)
	req.True(errors.IsInvalid(err))

	req.NoError(d.PermissionChange(first, second, PermOwner))
	req.True(d.IsGlobalOwner(second))

	// With a second owner in place, the first may step down.
	req.NoError(d.PermissionChange(first, first, PermMember))
	req.False(d.IsGlobalOwner(first))
}

func TestDirectory_DetailsAndListings(t *testing.T) {
	req := require.New(t)
	d := newDirectory()

	owner, _ := register(t, d, "owner@example.com", "Olive", "Owner")
	guest, _ := register(t, d, "guest@example.com", "Gary", "Guest")

	ch, err := d.CreateChannel(owner, "general", true)
	req.NoError(err)

	_, err = d.ChannelDetails(guest, ch)
	req.True(errors.IsUnauthorized(err))

	req.NoError(d.Join(guest, ch))
	details, err := d.ChannelDetails(guest, ch)
	req.NoError(err)
	req.Equal("general", details.Name)
	req.Len(details.Owners, 1)
	req.Len(details.Members, 2)
	req.Equal("oliveowner", details.Owners[0].Handle)

	req.Len(d.ListChannels(guest), 1)
	_, err = d.CreateChannel(owner, "owners-only", false)
	req.NoError(err)
	req.Len(d.ListChannels(guest), 1)
	req.Len(d.ListAllChannels(), 2)
}
