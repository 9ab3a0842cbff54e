// Package stubapi is an in-memory license API used to exercise the client
// end to end. Tokens are HS256 JWTs, refresh tokens are single use.
package stubapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/octabyte/license-client/models"
	otelecho "github.com/octabyte/license-client/otel/echo"
)

const (
	serviceName = "stubapi"

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 24 * time.Hour
)

type account struct {
	user     models.User
	password string
}

type Server struct {
	echo       *echo.Echo
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time

	mu            sync.Mutex
	accounts      map[string]*account
	accessIDs     map[string]struct{}
	refreshTokens map[string]string
	products      []models.Product
	licenses      []models.License
	users         []models.Account
	nextID        int64
	failLogout    bool
	refreshCalls  int
	logoutCalls   int
}

type Option func(*Server)

func WithSecret(secret []byte) Option {
	return func(s *Server) {
		s.secret = secret
	}
}

// WithAccessTTL sets the lifetime of issued access tokens.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		secret:        []byte("stubapi-secret"),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		now:           time.Now,
		accounts:      map[string]*account{},
		accessIDs:     map[string]struct{}{},
		refreshTokens: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Use(otelecho.Middleware(serviceName))

	v1 := e.Group("/v1")
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/register", s.register)
	v1.POST("/auth/refresh", s.refresh)
	v1.POST("/auth/logout", s.logout)

	api := v1.Group("", s.requireSession())
	api.GET("/me", s.me)
	api.GET("/users", s.listUsers)
	api.GET("/products", s.listProducts)
	api.GET("/licenses", s.listLicenses)
	api.POST("/users", s.createUser, s.requireAdmin())
	api.POST("/products", s.createProduct, s.requireAdmin())
	api.POST("/licenses", s.createLicense, s.requireAdmin())

	s.echo = e
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// AddAccount registers a user that can log in with password.
func (s *Server) AddAccount(user models.User, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	s.accounts[user.Email] = &account{user: user, password: password}
	return user
}

func (s *Server) AddProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.products = append(s.products, p)
	return p
}

func (s *Server) AddLicense(l models.License) models.License {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = s.id()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = s.now().UTC()
	}
	s.licenses = append(s.licenses, l)
	return l
}

func (s *Server) AddUserRow(a models.Account) models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = s.id()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now().UTC()
	}
	s.users = append(s.users, a)
	return a
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessIDs = map[string]struct{}{}
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = map[string]string{}
}

// FailLogout makes /auth/logout answer 500.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failLogout = fail
}

func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

func (s *Server) LogoutCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutCalls
}

// RefreshTokenValid reports whether token can still be exchanged.
func (s *Server) RefreshTokenValid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.refreshTokens[token]
	return ok
}

func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Server) accessValid(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accessIDs[id]
	return ok
}

// issue mints a token pair for user. Callers hold s.mu.
func (s *Server) issue(user models.User) (string, string, error) {
	now := s.now()

	accessID := uuid.NewString()
	access, err := s.sign(user, tokenTypeAccess, accessID, now.Add(s.accessTTL))
	if err != nil {
		return "", "", err
	}
	refresh, err := s.sign(user, tokenTypeRefresh, uuid.NewString(), now.Add(s.refreshTTL))
	if err != nil {
		return "", "", err
	}

	s.accessIDs[accessID] = struct{}{}
	s.refreshTokens[refresh] = user.Email
	return access, refresh, nil
}

func (s *Server) sign(user models.User, tokenType, id string, expires time.Time) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		User: user,
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}).SignedString(s.secret)
}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
