package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ruconnect/pkg/domain"
	"ruconnect/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	users    *InMemoryUserStore
	sessions *InMemorySessionStore
	ctx      context.Context
	now      time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.users = NewInMemoryUserStore()
	s.sessions = NewInMemorySessionStore()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newUser(username string) *User {
	user, err := NewUser(domain.NewUserID(), username, "Maria Quispe", "$2a$10$fakehashfakehashfakehash", s.now)
	s.Require().NoError(err)
	return user
}

func (s *MemoryStoreSuite) newSession(userID domain.UserID, createdAt time.Time) *Session {
	session, err := NewSession(domain.NewSessionID(), userID, "Chrome on Mac OS X", "fp-1", createdAt, 720*time.Hour)
	s.Require().NoError(err)
	return session
}

func (s *MemoryStoreSuite) TestUserLookups() {
	s.Run("finds by ID and username after creation", func() {
		user := s.newUser("maria")
		s.Require().NoError(s.users.Create(s.ctx, user))

		byID, err := s.users.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user.Username, byID.Username)

		byName, err := s.users.FindByUsername(s.ctx, "maria")
		s.Require().NoError(err)
		s.Equal(user.ID, byName.ID)
	})

	s.Run("username lookup folds case and whitespace", func() {
		user := s.newUser("Rosa")
		s.Require().NoError(s.users.Create(s.ctx, user))

		found, err := s.users.FindByUsername(s.ctx, "  rosa ")
		s.Require().NoError(err)
		s.Equal(user.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.users.FindByID(s.ctx, domain.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns ErrNotFound for unknown username", func() {
		_, err := s.users.FindByUsername(s.ctx, "nobody")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestUsernameUniqueness() {
	s.Run("rejects a duplicate username", func() {
		s.Require().NoError(s.users.Create(s.ctx, s.newUser("maria")))

		err := s.users.Create(s.ctx, s.newUser("maria"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("case difference is still a duplicate", func() {
		s.Require().NoError(s.users.Create(s.ctx, s.newUser("carlos")))

		err := s.users.Create(s.ctx, s.newUser("CARLOS"))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *MemoryStoreSuite) TestUserCopySemantics() {
	user := s.newUser("maria")
	s.Require().NoError(s.users.Create(s.ctx, user))

	found, err := s.users.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	found.Name = "Mutated"

	again, err := s.users.FindByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("Maria Quispe", again.Name)
}

func (s *MemoryStoreSuite) TestSessionLifecycle() {
	userID := domain.NewUserID()

	s.Run("creates and finds a session", func() {
		session := s.newSession(userID, s.now)
		s.Require().NoError(s.sessions.Create(s.ctx, session))

		found, err := s.sessions.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Equal(session.Device, found.Device)
	})

	s.Run("update persists revocation", func() {
		session := s.newSession(userID, s.now)
		s.Require().NoError(s.sessions.Create(s.ctx, session))

		s.Require().NoError(session.Revoke(s.now.Add(time.Minute)))
		s.Require().NoError(s.sessions.Update(s.ctx, session))

		found, err := s.sessions.FindByID(s.ctx, session.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found.RevokedAt)
		s.Equal(SessionStatusRevoked, found.Status(s.now.Add(2*time.Minute)))
	})

	s.Run("update on unknown session returns ErrNotFound", func() {
		session := s.newSession(userID, s.now)
		err := s.sessions.Update(s.ctx, session)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestSessionListOrdering() {
	userID := domain.NewUserID()
	otherID := domain.NewUserID()

	oldest := s.newSession(userID, s.now.Add(-3*time.Hour))
	middle := s.newSession(userID, s.now.Add(-2*time.Hour))
	newest := s.newSession(userID, s.now.Add(-1*time.Hour))
	foreign := s.newSession(otherID, s.now)

	for _, session := range []*Session{middle, foreign, oldest, newest} {
		s.Require().NoError(s.sessions.Create(s.ctx, session))
	}

	listed, err := s.sessions.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Require().Len(listed, 3)
	s.Equal(newest.ID, listed[0].ID)
	s.Equal(middle.ID, listed[1].ID)
	s.Equal(oldest.ID, listed[2].ID)
}

func (s *MemoryStoreSuite) TestConcurrentAccess() {
	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			user := s.newUser(fmt.Sprintf("user%02d", n))
			s.Require().NoError(s.users.Create(s.ctx, user))
			_, err := s.users.FindByUsername(s.ctx, user.Username)
			s.Require().NoError(err)
		}(i)
	}
	wg.Wait()
}
