package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/internal/stubapi"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/notify"
	"github.com/octabyte/license-client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type notifications struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (n *notifications) Notify(_ context.Context, item notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}

func (n *notifications) len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.items)
}

type AuthTestSuite struct {
	suite.Suite
	ctx       context.Context
	stub      *stubapi.Server
	server    *httptest.Server
	dir       string
	store     *session.Store
	client    *client.Client
	service   *Service
	notes     *notifications
	redirects int
	logs      *observer.ObservedLogs
}

func (s *AuthTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.stub = stubapi.New()
	s.stub.AddAccount(models.User{Email: "a@x.com", FirstName: "Ada", IsActive: true}, "p")
	s.server = httptest.NewServer(s.stub.Handler())
	s.dir = s.T().TempDir()
	s.notes = &notifications{}
	s.redirects = 0

	core, logs := observer.New(zap.DebugLevel)
	s.logs = logs
	log := zap.New(core)

	s.store = s.newStore(log)

	c, err := client.New(client.Config{BaseURL: s.server.URL}, s.store,
		client.WithNotifier(s.notes),
		client.WithNavigator(notify.NavigatorFunc(func(context.Context) { s.redirects++ })),
		client.WithLogger(log),
	)
	s.Require().NoError(err)
	s.client = c
	s.service = NewService(c, s.store, WithLogger(log))
}

func (s *AuthTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *AuthTestSuite) newStore(log *zap.Logger) *session.Store {
	p, err := session.NewFilePersistence(s.dir)
	s.Require().NoError(err)
	return session.NewStore(s.ctx, p, session.WithLogger(log))
}

func (s *AuthTestSuite) TestLoginStoresSessionAndAuthorizesRequests() {
	user, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	s.Equal("Ada", user.FirstName)

	s.True(s.service.IsAuthenticated())
	s.Equal("a@x.com", s.service.CurrentUser().Email)
	s.NotEmpty(s.store.AccessToken())
	s.NotEmpty(s.store.RefreshToken())

	var me models.User
	s.Require().NoError(s.client.Get(s.ctx, "/me", nil, &me))
	s.Equal(user.ID, me.ID)
}

func (s *AuthTestSuite) TestLoginDoesNotLogTokens() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)

	token := s.store.AccessToken()
	for _, entry := range s.logs.All() {
		for _, v := range entry.ContextMap() {
			if str, ok := v.(string); ok {
				s.NotContains(str, token)
			}
		}
	}
}

func (s *AuthTestSuite) TestLoginWithWrongPasswordLeavesStateUntouched() {
	_, err := s.service.Login(s.ctx, "a@x.com", "wrong")

	apiErr, ok := client.AsAPIError(err)
	s.Require().True(ok)
	s.Equal(client.KindCredential, apiErr.Kind)
	s.Equal(401, apiErr.Status)
	s.Equal("Invalid credentials", apiErr.Message)

	s.False(s.service.IsAuthenticated())
	s.Nil(s.service.CurrentUser())
	s.Zero(s.stub.RefreshCalls())
	s.Zero(s.redirects)
}

func (s *AuthTestSuite) TestLoginRejectsInvalidInputLocally() {
	_, err := s.service.Login(s.ctx, "not-an-email", "")

	apiErr, ok := client.AsAPIError(err)
	s.Require().True(ok)
	s.Equal(client.KindClient, apiErr.Kind)
	fields := apiErr.Data.(map[string]string)
	s.Equal("email", fields["Email"])
	s.Equal("required", fields["Password"])
	s.Zero(s.notes.len())
}

func (s *AuthTestSuite) TestRegisterCreatesSession() {
	user, err := s.service.Register(s.ctx, models.RegisterData{
		Email:     "new@x.com",
		Password:  "longenough",
		FirstName: "New",
		LastName:  "User",
	})
	s.Require().NoError(err)
	s.Equal("new@x.com", user.Email)
	s.Equal("New User", user.DisplayName())
	s.True(s.service.IsAuthenticated())
}

func (s *AuthTestSuite) TestRegisterDuplicateNotifies() {
	_, err := s.service.Register(s.ctx, models.RegisterData{
		Email:     "a@x.com",
		Password:  "longenough",
		FirstName: "Ada",
		LastName:  "Again",
	})

	apiErr, ok := client.AsAPIError(err)
	s.Require().True(ok)
	s.Equal(client.KindServer, apiErr.Kind)
	s.Equal(409, apiErr.Status)
	s.Equal(1, s.notes.len())
	s.False(s.service.IsAuthenticated())
}

func (s *AuthTestSuite) TestLogoutInvalidatesRefreshToken() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	refresh := s.store.RefreshToken()

	s.service.Logout(s.ctx)

	s.Equal(1, s.stub.LogoutCalls())
	s.False(s.stub.RefreshTokenValid(refresh))
	s.assertAnonymous()
}

func (s *AuthTestSuite) TestLogoutClearsStateWhenServerFails() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	s.stub.FailLogout(true)

	s.service.Logout(s.ctx)

	s.Equal(1, s.stub.LogoutCalls())
	s.assertAnonymous()
	s.Equal(1, s.logs.FilterMessage("server-side logout failed").Len())
}

func (s *AuthTestSuite) TestLogoutClearsStateWhenServerUnreachable() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	s.server.Close()

	s.service.Logout(s.ctx)
	s.assertAnonymous()
}

func (s *AuthTestSuite) TestLogoutWhenAnonymousSkipsServer() {
	s.service.Logout(s.ctx)
	s.Zero(s.stub.LogoutCalls())
	s.assertAnonymous()
}

func (s *AuthTestSuite) TestRefreshRotatesTokens() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	oldAccess, oldRefresh := s.store.AccessToken(), s.store.RefreshToken()

	s.Require().NoError(s.service.Refresh(s.ctx))

	s.NotEqual(oldAccess, s.store.AccessToken())
	s.NotEqual(oldRefresh, s.store.RefreshToken())
	s.False(s.stub.RefreshTokenValid(oldRefresh))
	s.True(s.service.IsAuthenticated())
}

func (s *AuthTestSuite) TestRefreshWithoutTokenFailsImmediately() {
	err := s.service.Refresh(s.ctx)
	s.ErrorIs(err, ErrNoRefreshToken)
	s.Equal("no refresh token available", err.Error())
	s.Zero(s.stub.RefreshCalls())
}

func (s *AuthTestSuite) TestRefreshFailureClearsSessionWithoutRedirect() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	s.stub.RevokeRefreshTokens()

	err = s.service.Refresh(s.ctx)
	apiErr, ok := client.AsAPIError(err)
	s.Require().True(ok)
	s.Equal(client.KindRefreshExhausted, apiErr.Kind)
	s.assertAnonymous()
	s.Zero(s.redirects)
}

func (s *AuthTestSuite) TestExpiredAccessTokenRecoversTransparently() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	s.stub.ExpireAccessTokens()

	var me models.User
	s.Require().NoError(s.client.Get(s.ctx, "/me", nil, &me))
	s.Equal("a@x.com", me.Email)
	s.Equal(1, s.stub.RefreshCalls())
	s.Zero(s.notes.len())
}

func (s *AuthTestSuite) TestUnrecoverable401EndsSession() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	s.stub.ExpireAccessTokens()
	s.stub.RevokeRefreshTokens()

	err = s.client.Get(s.ctx, "/me", nil, nil)
	s.True(client.IsUnauthorized(err))
	s.assertAnonymous()
	s.Equal(1, s.redirects)
}

func (s *AuthTestSuite) TestSessionSurvivesRestart() {
	_, err := s.service.Login(s.ctx, "a@x.com", "p")
	s.Require().NoError(err)
	before := s.store.Snapshot()

	after := s.newStore(zap.NewNop()).Snapshot()
	s.Equal(before, after)
}

func (s *AuthTestSuite) assertAnonymous() {
	snap := s.store.Snapshot()
	s.False(snap.IsAuthenticated)
	s.Empty(snap.AccessToken)
	s.Empty(snap.RefreshToken)
	s.Nil(snap.User)
}

func TestAuthTestSuite(t *testing.T) {
	suite.Run(t, new(AuthTestSuite))
}

type fakeAPI struct {
	err error
}

func (f *fakeAPI) Do(context.Context, *client.Request, any) error {
	return f.err
}

func (f *fakeAPI) Refresh(context.Context) (*models.RefreshResponse, error) {
	return nil, f.err
}

func TestLoginRejectsIncompleteResponse(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(ctx, session.NewMemoryPersistence())
	svc := NewService(&fakeAPI{}, store)

	_, err := svc.Login(ctx, "a@x.com", "p")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteResponse))
	assert.False(t, store.IsAuthenticated())
}
