package client

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ruconnect/pkg/domain"
	dErrors "ruconnect/pkg/domain-errors"
	"ruconnect/pkg/ruc"
)

type ModelsSuite struct {
	suite.Suite
	taxID        ruc.RUC
	registeredBy domain.UserID
	now          time.Time
}

func TestModelsSuite(t *testing.T) {
	suite.Run(t, new(ModelsSuite))
}

func (s *ModelsSuite) SetupTest() {
	s.taxID = ruc.RUC("20123456786")
	s.registeredBy = domain.NewUserID()
	s.now = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
}

func (s *ModelsSuite) TestConstructionInvariants() {
	s.Run("rejects zero client ID", func() {
		_, err := NewClient(domain.ClientID{}, s.taxID, "Bodega San Martin", "", "", s.registeredBy, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects an invalid RUC", func() {
		_, err := NewClient(domain.NewClientID(), ruc.RUC("20123456780"), "Bodega San Martin", "", "", s.registeredBy, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects a short name", func() {
		_, err := NewClient(domain.NewClientID(), s.taxID, " B ", "", "", s.registeredBy, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects an overlong name", func() {
		_, err := NewClient(domain.NewClientID(), s.taxID, strings.Repeat("x", 201), "", "", s.registeredBy, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("rejects a zero registering user", func() {
		_, err := NewClient(domain.NewClientID(), s.taxID, "Bodega San Martin", "", "", domain.UserID{}, s.now)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	s.Run("starts active with trimmed fields", func() {
		record, err := NewClient(domain.NewClientID(), s.taxID, "  Bodega San Martin  ", " c@x.pe ", " 999 ", s.registeredBy, s.now)
		s.Require().NoError(err)
		s.Equal(ClientStatusActive, record.Status)
		s.Equal("Bodega San Martin", record.Name)
		s.Equal("c@x.pe", record.Email)
		s.Equal("999", record.Phone)
		s.True(record.IsActive())
	})
}

func (s *ModelsSuite) TestUpdateDetails() {
	record, err := NewClient(domain.NewClientID(), s.taxID, "Bodega San Martin", "", "", s.registeredBy, s.now)
	s.Require().NoError(err)

	s.Run("rejects a name out of bounds", func() {
		err := record.UpdateDetails("x", "", "", s.now.Add(time.Minute))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal("Bodega San Martin", record.Name)
	})

	s.Run("replaces contact fields and bumps UpdatedAt", func() {
		err := record.UpdateDetails("Bodega Central", "c@x.pe", "999", s.now.Add(time.Minute))
		s.Require().NoError(err)
		s.Equal("Bodega Central", record.Name)
		s.Equal(s.now.Add(time.Minute), record.UpdatedAt)
		s.Equal(s.taxID, record.RUC)
		s.Equal(s.now, record.CreatedAt)
	})
}

func (s *ModelsSuite) TestStatusTransitions() {
	s.Run("active deactivates and reactivates", func() {
		record, err := NewClient(domain.NewClientID(), s.taxID, "Bodega San Martin", "", "", s.registeredBy, s.now)
		s.Require().NoError(err)

		s.Require().NoError(record.Deactivate(s.now.Add(time.Minute)))
		s.Equal(ClientStatusInactive, record.Status)
		s.False(record.IsActive())

		s.Require().NoError(record.Reactivate(s.now.Add(2 * time.Minute)))
		s.Equal(ClientStatusActive, record.Status)
		s.Equal(s.now.Add(2*time.Minute), record.UpdatedAt)
	})

	s.Run("deactivating twice is rejected", func() {
		record, err := NewClient(domain.NewClientID(), s.taxID, "Bodega San Martin", "", "", s.registeredBy, s.now)
		s.Require().NoError(err)
		s.Require().NoError(record.Deactivate(s.now))

		err = record.Deactivate(s.now.Add(time.Minute))
		s.Require().Error(err)
		s.Contains(err.Error(), "already inactive")
	})

	s.Run("reactivating an active record is rejected", func() {
		record, err := NewClient(domain.NewClientID(), s.taxID, "Bodega San Martin", "", "", s.registeredBy, s.now)
		s.Require().NoError(err)

		err = record.Reactivate(s.now)
		s.Require().Error(err)
		s.Contains(err.Error(), "already active")
	})
}
