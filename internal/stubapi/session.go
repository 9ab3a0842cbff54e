package stubapi

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/octabyte/license-client/models"
)

const (
	Authorization  = "Authorization"
	SessionCookie  = "Session"
	SessionUserKey = "sessionUser"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type claims struct {
	User models.User `json:"user"`
	Type string      `json:"typ"`
	jwt.RegisteredClaims
}

// requireSession authenticates the request from its bearer token, falling
// back to the session cookie, and stores the user under SessionUserKey.
func (s *Server) requireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(Authorization), "Bearer "))
			if token == "" {
				if cookie, err := c.Cookie(SessionCookie); err == nil {
					token = cookie.Value
				}
			}

			cl, err := s.parse(token, tokenTypeAccess)
			if err != nil || !s.accessValid(cl.ID) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			c.Set(SessionUserKey, cl.User)
			return next(c)
		}
	}
}

func (s *Server) requireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(SessionUserKey).(models.User)
			if !ok || !user.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}
			return next(c)
		}
	}
}

func (s *Server) parse(token, tokenType string) (*claims, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(token, cl, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if cl.Type != tokenType {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return cl, nil
}
