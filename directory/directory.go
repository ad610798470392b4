// Package directory is the user/channel store the core consumes through
// contract.Directory: accounts, sessions, channel membership and
// ownership. It owns its own lock; the message ledger never reaches into
// it except through the lookup primitives.
package directory

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"huddle/auth"
	"huddle/domain"
	"huddle/errors"
)

type Permission int

const (
	PermOwner  Permission = 1
	PermMember Permission = 2
)

type User struct {
	ID         domain.UserID
	Email      string
	NameFirst  string
	NameLast   string
	Handle     string
	Permission Permission

	passwordHash string
}

type Channel struct {
	ID      domain.ChannelID
	Name    string
	Public  bool
	Owners  domain.UserSet
	Members domain.UserSet
}

// RegisterRequest carries the validated registration fields.
type RegisterRequest struct {
	Email     string `validate:"required,email"`
	Password  string `validate:"required,min=6,max=72"`
	NameFirst string `validate:"required,min=1,max=50"`
	NameLast  string `validate:"required,min=1,max=50"`
}

type Directory struct {
	mu       sync.RWMutex
	log      *slog.Logger
	tokens   *auth.Tokens
	validate *validator.Validate

	users    map[domain.UserID]*User
	emails   map[string]domain.UserID
	handles  map[string]domain.UserID
	channels map[domain.ChannelID]*Channel
	sessions map[string]domain.UserID

	nextUser    domain.UserID
	nextChannel domain.ChannelID
}

func New(tokens *auth.Tokens, log *slog.Logger) *Directory {
	return &Directory{
		log:         log,
		tokens:      tokens,
		validate:    validator.New(),
		users:       make(map[domain.UserID]*User),
		emails:      make(map[string]domain.UserID),
		handles:     make(map[string]domain.UserID),
		channels:    make(map[domain.ChannelID]*Channel),
		sessions:    make(map[string]domain.UserID),
		nextUser:    1,
		nextChannel: 1,
	}
}

// Register creates an account and opens a session. The first user ever
// registered holds the global Owner permission; everyone after is a
// plain Member. The handle is first+last lowercased, truncated to 20
// runes, with a numeric suffix on collision.
func (d *Directory) Register(req RegisterRequest) (domain.UserID, string, error) {
	if err := d.validate.Struct(req); err != nil {
		return 0, "", errors.Invalidf("invalid registration: %v", err)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return 0, "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	email := strings.ToLower(req.Email)
	if _, taken := d.emails[email]; taken {
		return 0, "", errors.Invalidf("email address is already being used")
	}

	perm := PermMember
	if len(d.users) == 0 {
		perm = PermOwner
	}
	user := &User{
		ID:           d.nextUser,
		Email:        email,
		NameFirst:    req.NameFirst,
		NameLast:     req.NameLast,
		Handle:       d.uniqueHandle(req.NameFirst, req.NameLast),
		Permission:   perm,
		passwordHash: hash,
	}
	d.nextUser++
	d.users[user.ID] = user
	d.emails[email] = user.ID
	d.handles[user.Handle] = user.ID

	token, err := d.openSession(user.ID)
	if err != nil {
		return 0, "", err
	}
	return user.ID, token, nil
}

func (d *Directory) uniqueHandle(first, last string) string {
	base := strings.ToLower(first + last)
	if runes := []rune(base); len(runes) > 20 {
		base = string(runes[:20])
	}
	handle := base
	for n := 0; ; n++ {
		if _, taken := d.handles[handle]; !taken {
			return handle
		}
		handle = fmt.Sprintf("%s%d", base, n)
	}
}

// Login verifies credentials and opens a fresh session.
func (d *Directory) Login(email, password string) (domain.UserID, string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.emails[strings.ToLower(email)]
	if !ok {
		return 0, "", errors.Invalidf("email does not belong to a user")
	}
	match, err := auth.ComparePassword(password, d.users[id].passwordHash)
	if err != nil {
		return 0, "", err
	}
	if !match {
		return 0, "", errors.Invalidf("password is not correct")
	}
	token, err := d.openSession(id)
	if err != nil {
		return 0, "", err
	}
	return id, token, nil
}

func (d *Directory) openSession(user domain.UserID) (string, error) {
	token, err := d.tokens.Issue(user)
	if err != nil {
		return "", err
	}
	d.sessions[token] = user
	return token, nil
}

// Logout invalidates the session token. Reports whether the token was
// active.
func (d *Directory) Logout(token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, active := d.sessions[token]
	delete(d.sessions, token)
	return active
}

// ValidateSession maps an opaque session token to a user identity. The
// signature must verify and the token must still be on the active list,
// so logged-out tokens fail even before their JWT expiry.
func (d *Directory) ValidateSession(token string) (domain.UserID, error) {
	user, err := d.tokens.Validate(token)
	if err != nil {
		return 0, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	active, ok := d.sessions[token]
	if !ok || active != user {
		return 0, errors.Unauthorizedf("session is no longer active")
	}
	if _, exists := d.users[user]; !exists {
		return 0, errors.Unauthorizedf("session user no longer exists")
	}
	return user, nil
}
