//go:build integration

package artifact_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"skdm/internal/compiler/artifact"
	"skdm/internal/platform/redis"
	id "skdm/pkg/domain"
	"skdm/pkg/platform/sentinel"
	"skdm/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	container *containers.RedisContainer
	store     *artifact.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.container = containers.NewRedisContainer(s.T())
	s.store = artifact.NewRedisStore(&redis.Client{Client: s.container.Client}, time.Hour)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.container.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestPutGetInvalidate() {
	ctx := context.Background()
	tenantID := id.NewTenantID()
	declarationID := id.NewDeclarationID()
	stored := artifact.Stored{
		Artifact:    []byte("<CBAMDeclaration/>"),
		SHA256Hash:  "deadbeef",
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}

	s.Require().NoError(s.store.Put(ctx, tenantID, declarationID, stored))

	got, err := s.store.Get(ctx, tenantID, declarationID)
	s.Require().NoError(err)
	s.Equal(stored.Artifact, got.Artifact)
	s.Equal(stored.SHA256Hash, got.SHA256Hash)
	s.True(stored.GeneratedAt.Equal(got.GeneratedAt))

	s.Require().NoError(s.store.Invalidate(ctx, tenantID, declarationID))
	_, err = s.store.Get(ctx, tenantID, declarationID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestKeysAreTenantScoped() {
	ctx := context.Background()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()
	declarationID := id.NewDeclarationID()

	s.Require().NoError(s.store.Put(ctx, tenantA, declarationID, artifact.Stored{
		Artifact:   []byte("<CBAMDeclaration/>"),
		SHA256Hash: "deadbeef",
	}))

	// The same declaration ID under another tenant's key is a miss.
	_, err := s.store.Get(ctx, tenantB, declarationID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestMissIsNotFound() {
	_, err := s.store.Get(context.Background(), id.NewTenantID(), id.NewDeclarationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
