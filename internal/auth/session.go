// Package auth holds the client-side session: the bearer token issued by the
// storefront API and the user it was issued to.
package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vedran77/marketchat/internal/domain"
)

var ErrNoIdentity = errors.New("token carries no user identity")

// Claims is the payload the storefront puts into its access tokens.
type Claims struct {
	jwt.RegisteredClaims

	UserID   domain.ID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// Session is safe for concurrent use. Subscribers are notified whenever the
// token changes so long-lived sockets can reconnect with the new one.
type Session struct {
	mu    sync.RWMutex
	token string
	user  domain.User

	subs   map[int]func(token string)
	nextID int
}

func NewSession() *Session {
	return &Session{subs: make(map[int]func(string))}
}

// ParseClaims decodes the token payload. The signature is not verified: the
// client has no key and only needs to know who it is logged in as.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if claims.UserID.IsZero() {
		claims.UserID = domain.ID(claims.Subject)
	}
	if claims.UserID.IsZero() && claims.Username == "" {
		return nil, ErrNoIdentity
	}
	return claims, nil
}

// SetToken replaces the session token. An empty token logs out.
func (s *Session) SetToken(token string) error {
	var user domain.User
	if token != "" {
		claims, err := ParseClaims(token)
		if err != nil {
			return err
		}
		user = domain.User{ID: claims.UserID, Username: claims.Username, Role: claims.Role}
	}

	s.mu.Lock()
	changed := s.token != token
	s.token = token
	s.user = user
	subs := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	if changed {
		for _, fn := range subs {
			fn(token)
		}
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Subscribe registers fn for token changes and returns a function removing it.
func (s *Session) Subscribe(fn func(token string)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
