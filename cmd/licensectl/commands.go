package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/octabyte/license-client/auth"
	"github.com/octabyte/license-client/client"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/resources"
)

var errUsage = errors.New("usage: licensectl login|register|logout|whoami|refresh|get <path>|licenses|products|users")

const passwordEnv = "LICENSE_PASSWORD"

type requester interface {
	Do(ctx context.Context, req *client.Request, out any) error
}

type app struct {
	auth      auth.Authenticator
	api       requester
	resources *resources.Resources
	out       io.Writer
	getenv    func(string) string
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "register":
		return a.register(ctx, rest)
	case "logout":
		a.auth.Logout(ctx)
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "whoami":
		return a.whoami()
	case "refresh":
		if err := a.auth.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "tokens refreshed")
		return nil
	case "get":
		return a.get(ctx, rest)
	case "licenses":
		return a.licenses(ctx, rest)
	case "products":
		return a.products(ctx, rest)
	case "users":
		return a.users(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// password falls back to LICENSE_PASSWORD so it stays out of shell history.
func (a *app) password(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return a.getenv(passwordEnv)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or "+passwordEnv+")")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	user, err := a.auth.Login(ctx, *email, a.password(*password))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n", displayName(user))
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or "+passwordEnv+")")
	first := fs.String("first-name", "", "first name")
	last := fs.String("last-name", "", "last name")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	user, err := a.auth.Register(ctx, models.RegisterData{
		Email:     *email,
		Password:  a.password(*password),
		FirstName: *first,
		LastName:  *last,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s\n", displayName(user))
	return nil
}

func displayName(u *models.User) string {
	if u == nil {
		return "unknown user"
	}
	return u.DisplayName()
}

func (a *app) whoami() error {
	if !a.auth.IsAuthenticated() {
		return errors.New("not logged in")
	}
	user := a.auth.CurrentUser()
	role := "user"
	if user.IsAdmin() {
		role = "admin"
	}
	fmt.Fprintf(a.out, "%s <%s> %s\n", displayName(user), user.Email, role)
	return nil
}

func (a *app) get(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	path := args[0]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var out any
	if err := a.api.Do(ctx, &client.Request{Method: http.MethodGet, Path: path}, &out); err != nil {
		return err
	}
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(body))
	return nil
}

func parseListFlags(name string, args []string, activeDefault bool) (resources.ListOptions, error) {
	fs := newFlagSet(name)
	orderBy := fs.String("order", "", "column to order by (default created_at)")
	asc := fs.Bool("asc", false, "oldest first")
	active := fs.Bool("active", activeDefault, "only active rows")
	if err := fs.Parse(args); err != nil {
		return resources.ListOptions{}, fmt.Errorf("%v: %w", err, errUsage)
	}
	return resources.ListOptions{OrderBy: *orderBy, Ascending: *asc, ActiveOnly: *active}, nil
}

func (a *app) licenses(ctx context.Context, args []string) error {
	opts, err := parseListFlags("licenses", args, false)
	if err != nil {
		return err
	}
	licenses, err := a.resources.Licenses.List(ctx, opts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKEY\tSTATUS\tUSER\tPRODUCT")
	for _, l := range licenses {
		var owner, product string
		if l.User != nil {
			owner = l.User.Email
		}
		if l.Product != nil {
			product = l.Product.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.LicenseKey, l.Status, owner, product)
	}
	return tw.Flush()
}

func (a *app) products(ctx context.Context, args []string) error {
	opts, err := parseListFlags("products", args, true)
	if err != nil {
		return err
	}
	products, err := a.resources.Products.List(ctx, opts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSLUG\tPRICE\tACTIVE")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%t\n", p.ID, p.Name, p.Slug, p.Price, p.IsActive)
	}
	return tw.Flush()
}

// users is the admin dashboard listing.
func (a *app) users(ctx context.Context, args []string) error {
	if err := resources.RequireAdmin(a.auth); err != nil {
		return err
	}
	opts, err := parseListFlags("users", args, false)
	if err != nil {
		return err
	}
	users, err := a.resources.Users.List(ctx, opts)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.FullName, u.Email, u.Role, u.IsActive)
	}
	return tw.Flush()
}
