//go:build integration

package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"ruconnect/internal/client"
	"ruconnect/pkg/domain"
	"ruconnect/pkg/platform/sentinel"
	"ruconnect/pkg/ruc"
	"ruconnect/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *client.PostgresStore
	operator domain.UserID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = client.NewPostgresStore(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()

	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "clients", "users")
	s.Require().NoError(err)

	// Create an operator for the FK constraint on registered_by
	s.operator = domain.NewUserID()
	_, err = s.postgres.Pool.Exec(ctx, `
		INSERT INTO users (id, username, name, password_hash, created_at, updated_at)
		VALUES ($1, $2, 'Test Operator', 'x', NOW(), NOW())
	`, s.operator.String(), "operator-"+uuid.NewString())
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) newRecord(taxID, name string) *client.Client {
	record, err := client.NewClient(
		domain.NewClientID(), ruc.RUC(taxID), name, "", "", s.operator, time.Now().UTC())
	s.Require().NoError(err)
	return record
}

func (s *PostgresStoreSuite) TestCreateAndLookups() {
	ctx := context.Background()
	record := s.newRecord("20123456786", "Bodega San Martin")
	s.Require().NoError(s.store.Create(ctx, record))

	byID, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, byID.ID)
	s.Equal(record.RUC, byID.RUC)
	s.Equal("Bodega San Martin", byID.Name)
	s.Equal(s.operator, byID.RegisteredBy)
	s.Equal(client.ClientStatusActive, byID.Status)

	byRUC, err := s.store.FindByRUC(ctx, record.RUC)
	s.Require().NoError(err)
	s.Equal(record.ID, byRUC.ID)
}

func (s *PostgresStoreSuite) TestNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, domain.NewClientID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByRUC(ctx, ruc.RUC("20123456786"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateRUCConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newRecord("20123456786", "Bodega San Martin")))

	err := s.store.Create(ctx, s.newRecord("20123456786", "Bodega Dos"))
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()

	active := s.newRecord("20123456786", "Bodega San Martin")
	s.Require().NoError(s.store.Create(ctx, active))

	inactive := s.newRecord("10123456781", "Ferreteria Lima")
	s.Require().NoError(inactive.Deactivate(time.Now().UTC()))
	s.Require().NoError(s.store.Create(ctx, inactive))

	s.Require().NoError(s.store.Create(ctx, s.newRecord("15987654322", "Panaderia Central")))

	all, err := s.store.List(ctx, client.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	inactives, err := s.store.List(ctx, client.ListFilter{Status: client.ClientStatusInactive})
	s.Require().NoError(err)
	s.Require().Len(inactives, 1)
	s.Equal(inactive.ID, inactives[0].ID)

	// Query matches name and RUC, case-insensitively.
	byName, err := s.store.List(ctx, client.ListFilter{Query: "bodega"})
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal(active.ID, byName[0].ID)

	byRUC, err := s.store.List(ctx, client.ListFilter{Query: "15987"})
	s.Require().NoError(err)
	s.Len(byRUC, 1)

	limited, err := s.store.List(ctx, client.ListFilter{Limit: 2})
	s.Require().NoError(err)
	s.Len(limited, 2)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	record := s.newRecord("20123456786", "Bodega San Martin")
	s.Require().NoError(s.store.Create(ctx, record))

	s.Require().NoError(record.UpdateDetails("Bodega Renovada", "renovada@example.pe", "+51 999 888 777", time.Now().UTC()))
	s.Require().NoError(record.Deactivate(time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, record))

	stored, err := s.store.FindByID(ctx, record.ID)
	s.Require().NoError(err)
	s.Equal("Bodega Renovada", stored.Name)
	s.Equal("renovada@example.pe", stored.Email)
	s.Equal(client.ClientStatusInactive, stored.Status)

	missing := s.newRecord("17123456785", "Nunca Guardado")
	s.ErrorIs(s.store.Update(ctx, missing), sentinel.ErrNotFound)
}
