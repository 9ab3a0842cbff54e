// Package resources gives typed access to the license API collections.
package resources

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/enums"
	"github.com/octabyte/license-client/models"
)

// ErrForbidden is returned by RequireAdmin for non-admin sessions.
var ErrForbidden = errors.New("admin access required")

const defaultOrderBy = "created_at"

// API is the transport used by the collections.
type API interface {
	Do(ctx context.Context, req *client.Request, out any) error
}

// ListOptions filters and orders a listing. The zero value lists newest
// first.
type ListOptions struct {
	OrderBy    string
	Ascending  bool
	ActiveOnly bool
}

func (o ListOptions) query() map[string]string {
	orderBy := o.OrderBy
	if orderBy == "" {
		orderBy = defaultOrderBy
	}
	q := map[string]string{
		"order_by":  orderBy,
		"ascending": strconv.FormatBool(o.Ascending),
	}
	if o.ActiveOnly {
		q["active"] = "true"
	}
	return q
}

// Collection is one resource collection under the /v1 base.
type Collection[T any] struct {
	api      API
	path     string
	validate *validator.Validate
}

func newCollection[T any](api API, name string, validate *validator.Validate) *Collection[T] {
	return &Collection[T]{api: api, path: "/" + name, validate: validate}
}

func (c *Collection[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	var out []T
	err := c.api.Do(ctx, &client.Request{
		Method: http.MethodGet,
		Path:   c.path,
		Query:  opts.query(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Create validates item and returns the stored row.
func (c *Collection[T]) Create(ctx context.Context, item T) (*T, error) {
	if err := c.validate.Struct(item); err != nil {
		return nil, &client.APIError{Message: "Invalid input", Kind: client.KindClient, Err: err}
	}

	var out T
	err := c.api.Do(ctx, &client.Request{
		Method: http.MethodPost,
		Path:   c.path,
		Body:   item,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type Resources struct {
	Users    *Collection[models.Account]
	Products *Collection[models.Product]
	Licenses *Collection[models.License]
}

func New(api API) *Resources {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return &Resources{
		Users:    newCollection[models.Account](api, enums.UserResource, validate),
		Products: newCollection[models.Product](api, enums.ProductResource, validate),
		Licenses: newCollection[models.License](api, enums.LicenseResource, validate),
	}
}

// CurrentUserSource reports the signed-in user. auth.Authenticator
// satisfies it.
type CurrentUserSource interface {
	CurrentUser() *models.User
}

// RequireAdmin gates admin-only screens on the current user's role.
func RequireAdmin(src CurrentUserSource) error {
	if !src.CurrentUser().IsAdmin() {
		return ErrForbidden
	}
	return nil
}
