package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/session"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

type PersistenceTestSuite struct {
	suite.Suite
	ctx    context.Context
	mr     *miniredis.Miniredis
	client *redis.Client
}

func (s *PersistenceTestSuite) SetupTest() {
	s.ctx = context.Background()

	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	client, err := NewRedisClient(s.ctx, Config{Addr: mr.Addr()})
	s.Require().NoError(err)
	s.client = client
}

func (s *PersistenceTestSuite) TearDownTest() {
	_ = s.client.Close()
	s.mr.Close()
}

func (s *PersistenceTestSuite) TestLoadMissing() {
	p := NewPersistence(s.client, "licensectl:", 0)

	_, err := p.Load(s.ctx)
	s.ErrorIs(err, session.ErrNotFound)
}

func (s *PersistenceTestSuite) TestStoreRoundTrip() {
	p := NewPersistence(s.client, "licensectl:", 0)
	s.Equal("licensectl:auth-storage", p.Key())

	store := session.NewStore(s.ctx, p)
	user := &models.User{ID: "u1", Email: "a@x.com", IsActive: true}
	s.Require().NoError(store.SetSession(s.ctx, user, "a1", "r1"))

	raw, err := s.mr.Get(p.Key())
	s.Require().NoError(err)
	s.Equal("r1", gjson.Get(raw, "state.refreshToken").String())

	reloaded := session.NewStore(s.ctx, p)
	s.Equal(store.Snapshot(), reloaded.Snapshot())

	s.Require().NoError(reloaded.ClearAuth(s.ctx))
	s.False(s.mr.Exists(p.Key()))
}

func (s *PersistenceTestSuite) TestTTL() {
	p := NewPersistence(s.client, "", time.Hour)
	s.Require().NoError(p.Save(s.ctx, &session.Record{State: models.Session{AccessToken: "a1", RefreshToken: "r1", IsAuthenticated: true}}))

	s.Equal(time.Hour, s.mr.TTL("auth-storage"))

	s.mr.FastForward(2 * time.Hour)
	_, err := p.Load(s.ctx)
	s.ErrorIs(err, session.ErrNotFound)
}

func (s *PersistenceTestSuite) TestCorruptRecord() {
	p := NewPersistence(s.client, "", 0)
	s.Require().NoError(s.mr.Set(p.Key(), "{broken"))

	_, err := p.Load(s.ctx)
	s.Error(err)
	s.NotErrorIs(err, session.ErrNotFound)
}

func TestPersistenceTestSuite(t *testing.T) {
	suite.Run(t, new(PersistenceTestSuite))
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(context.Background(), Config{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected connection error")
	}
}
