package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to a zap logger. Destructive
// notifications are logged at error level.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.L()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	fields := []zap.Field{
		zap.String("title", n.Title),
		zap.String("variant", string(n.Variant)),
	}
	if n.Variant == VariantDestructive {
		l.logger.Error(n.Description, fields...)
		return
	}
	l.logger.Info(n.Description, fields...)
}

// LoginRedirect records the last redirect target and invokes an optional
// callback, e.g. to print a hint in a CLI.
type LoginRedirect struct {
	logger     *zap.Logger
	onRedirect func(ctx context.Context, path string)
}

func NewLoginRedirect(logger *zap.Logger, onRedirect func(ctx context.Context, path string)) *LoginRedirect {
	if logger == nil {
		logger = zap.L()
	}
	return &LoginRedirect{logger: logger, onRedirect: onRedirect}
}

func (r *LoginRedirect) RedirectToLogin(ctx context.Context) {
	r.logger.Info("session ended, login required", zap.String("path", LoginPath))
	if r.onRedirect != nil {
		r.onRedirect(ctx, LoginPath)
	}
}
