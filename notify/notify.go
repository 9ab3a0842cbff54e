// Package notify delivers user-visible notifications (the toasts of a UI
// client) and login redirects raised by the HTTP client.
package notify

import (
	"context"
	"time"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// LoginPath is where an ended session sends the user.
const LoginPath = "/auth/login"

type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier surfaces a notification to the user. Implementations must not
// block on slow sinks for longer than ctx allows.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

// Nop discards notifications.
var Nop Notifier = NotifierFunc(func(context.Context, Notification) {})

type multi []Notifier

// Multi fans a notification out to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, n Notification) {
	for _, notifier := range m {
		notifier.Notify(ctx, n)
	}
}

// Navigator moves the user to the login screen once the session is gone.
type Navigator interface {
	RedirectToLogin(ctx context.Context)
}

type NavigatorFunc func(ctx context.Context)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context) {
	f(ctx)
}

// Event is the envelope published for every notification.
type Event struct {
	EventName string       `json:"event_name"`
	Payload   Notification `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

const (
	EventNotification  = "notification"
	EventLoginRequired = "login_required"
)
