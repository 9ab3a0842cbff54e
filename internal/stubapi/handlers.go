package stubapi

import (
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/octabyte/license-client/enums"
	"github.com/octabyte/license-client/models"
)

func (s *Server) login(c echo.Context) error {
	var creds models.Credentials
	if err := c.Bind(&creds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[creds.Email]
	if !ok || acc.password != creds.Password {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	return s.authResponse(c, http.StatusOK, acc.user)
}

func (s *Server) register(c echo.Context) error {
	var data models.RegisterData
	if err := c.Bind(&data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[data.Email]; exists {
		return echo.NewHTTPError(http.StatusConflict, "Email already registered")
	}

	user := models.User{
		ID:        uuid.NewString(),
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  data.LastName,
		IsActive:  true,
		Role:      string(enums.RoleUser),
	}
	s.accounts[data.Email] = &account{user: user, password: data.Password}
	return s.authResponse(c, http.StatusCreated, user)
}

func (s *Server) authResponse(c echo.Context, status int, user models.User) error {
	access, refresh, err := s.issue(user)
	if err != nil {
		return err
	}
	return c.JSON(status, models.AuthResponse{User: &user, AccessToken: access, RefreshToken: refresh})
}

// refresh rotates the pair. The presented refresh token is consumed.
func (s *Server) refresh(c echo.Context) error {
	var req models.RefreshRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++

	email, ok := s.refreshTokens[req.RefreshToken]
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}
	delete(s.refreshTokens, req.RefreshToken)

	if _, err := s.parse(req.RefreshToken, tokenTypeRefresh); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}
	acc, ok := s.accounts[email]
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid refresh token")
	}

	access, refresh, err := s.issue(acc.user)
	if err != nil {
		return err
	}
	user := acc.user
	return c.JSON(http.StatusOK, models.RefreshResponse{AccessToken: access, RefreshToken: refresh, User: &user})
}

func (s *Server) logout(c echo.Context) error {
	var req models.LogoutRequest
	if err := c.Bind(&req); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutCalls++

	if s.failLogout {
		return echo.NewHTTPError(http.StatusInternalServerError, "Logout failed")
	}
	delete(s.refreshTokens, req.RefreshToken)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, c.Get(SessionUserKey))
}

type listQuery struct {
	orderBy    string
	ascending  bool
	activeOnly bool
}

func parseListQuery(c echo.Context) listQuery {
	q := listQuery{orderBy: c.QueryParam("order_by")}
	if q.orderBy == "" {
		q.orderBy = "created_at"
	}
	q.ascending, _ = strconv.ParseBool(c.QueryParam("ascending"))
	q.activeOnly, _ = strconv.ParseBool(c.QueryParam("active"))
	return q
}

// less orders by the requested column, newest first unless ascending.
func (q listQuery) less(aName, bName string, aCreated, bCreated time.Time, aID, bID int64) bool {
	var cmp int
	switch q.orderBy {
	case "name", "full_name", "license_key":
		cmp = strings.Compare(aName, bName)
	case "id":
		cmp = int(aID - bID)
	default:
		cmp = aCreated.Compare(bCreated)
	}
	if cmp == 0 {
		cmp = int(aID - bID)
	}
	if q.ascending {
		return cmp < 0
	}
	return cmp > 0
}

func (s *Server) listProducts(c echo.Context) error {
	q := parseListQuery(c)

	s.mu.Lock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if q.activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return q.less(out[i].Name, out[j].Name, out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return c.JSON(http.StatusOK, out)
}

func (s *Server) listLicenses(c echo.Context) error {
	q := parseListQuery(c)

	s.mu.Lock()
	out := make([]models.License, 0, len(s.licenses))
	for _, l := range s.licenses {
		if q.activeOnly && l.Status != string(enums.LicenseStatusActive) {
			continue
		}
		out = append(out, s.withRefs(l))
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return q.less(out[i].LicenseKey, out[j].LicenseKey, out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return c.JSON(http.StatusOK, out)
}

// withRefs embeds the owning user and product the way the backend's joined
// select does. Callers hold s.mu.
func (s *Server) withRefs(l models.License) models.License {
	if i := slices.IndexFunc(s.users, func(a models.Account) bool { return a.ID == l.UserID }); i >= 0 {
		l.User = &models.AccountRef{FullName: s.users[i].FullName, Email: s.users[i].Email}
	}
	if i := slices.IndexFunc(s.products, func(p models.Product) bool { return p.ID == l.ProductID }); i >= 0 {
		l.Product = &models.ProductRef{Name: s.products[i].Name, Price: s.products[i].Price}
	}
	return l
}

func (s *Server) listUsers(c echo.Context) error {
	q := parseListQuery(c)

	s.mu.Lock()
	out := make([]models.Account, 0, len(s.users))
	for _, a := range s.users {
		if q.activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return q.less(out[i].FullName, out[j].FullName, out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createProduct(c echo.Context) error {
	var p models.Product
	if err := c.Bind(&p); err != nil {
		return err
	}
	if p.Name == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Name is required")
	}
	return c.JSON(http.StatusCreated, s.AddProduct(p))
}

func (s *Server) createLicense(c echo.Context) error {
	var l models.License
	if err := c.Bind(&l); err != nil {
		return err
	}
	if l.LicenseKey == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "License key is required")
	}
	l = s.AddLicense(l)

	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusCreated, s.withRefs(l))
}

func (s *Server) createUser(c echo.Context) error {
	var a models.Account
	if err := c.Bind(&a); err != nil {
		return err
	}
	if a.Email == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Email is required")
	}
	return c.JSON(http.StatusCreated, s.AddUserRow(a))
}
