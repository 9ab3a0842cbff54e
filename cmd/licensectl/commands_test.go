package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/octabyte/license-client/auth"
	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/enums"
	"github.com/octabyte/license-client/internal/stubapi"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/resources"
	"github.com/octabyte/license-client/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *stubapi.Server) {
	t.Helper()

	stub := stubapi.New()
	stub.AddAccount(models.User{Email: "admin@x.com", FirstName: "Ada", LastName: "Admin", Role: string(enums.RoleAdmin)}, "secret")
	stub.AddAccount(models.User{Email: "user@x.com", FirstName: "Una"}, "secret")
	stub.AddProduct(models.Product{Name: "Pro", Slug: "pro", Price: 49, IsActive: true})
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	ctx := context.Background()
	store := session.NewStore(ctx, session.NewMemoryPersistence(), session.WithLogger(zap.NewNop()))
	c, err := client.New(client.Config{BaseURL: server.URL}, store, client.WithLogger(zap.NewNop()))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &app{
		auth:      auth.NewService(c, store, auth.WithLogger(zap.NewNop())),
		api:       c,
		resources: resources.New(c),
		out:       out,
		getenv:    func(string) string { return "" },
	}, out, stub
}

func TestLoginWhoamiLogout(t *testing.T) {
	ctx := context.Background()
	a, out, stub := newTestApp(t)

	require.NoError(t, a.run(ctx, []string{"login", "-email", "admin@x.com", "-password", "secret"}))
	assert.Contains(t, out.String(), "logged in as Ada Admin")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"whoami"}))
	assert.Equal(t, "Ada Admin <admin@x.com> admin\n", out.String())

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"logout"}))
	assert.Equal(t, 1, stub.LogoutCalls())

	assert.EqualError(t, a.run(ctx, []string{"whoami"}), "not logged in")
}

func TestPasswordFromEnvironment(t *testing.T) {
	a, _, _ := newTestApp(t)
	a.getenv = func(key string) string {
		if key == passwordEnv {
			return "secret"
		}
		return ""
	}

	require.NoError(t, a.run(context.Background(), []string{"login", "-email", "user@x.com"}))
	assert.True(t, a.auth.IsAuthenticated())
}

func TestProductsAndGet(t *testing.T) {
	ctx := context.Background()
	a, out, _ := newTestApp(t)
	require.NoError(t, a.run(ctx, []string{"login", "-email", "user@x.com", "-password", "secret"}))

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"products"}))
	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), "Pro")
	assert.Contains(t, out.String(), "49.00")

	out.Reset()
	require.NoError(t, a.run(ctx, []string{"get", "me"}))
	assert.Contains(t, out.String(), `"email": "user@x.com"`)
}

func TestUsersRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	a, _, _ := newTestApp(t)
	require.NoError(t, a.run(ctx, []string{"login", "-email", "user@x.com", "-password", "secret"}))

	assert.ErrorIs(t, a.run(ctx, []string{"users"}), resources.ErrForbidden)
}

func TestUsage(t *testing.T) {
	a, _, _ := newTestApp(t)

	assert.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"frobnicate"}), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"get"}), errUsage)
	assert.ErrorIs(t, a.run(context.Background(), []string{"login", "-bogus"}), errUsage)
}
