package notify

import (
	"context"
	"time"

	"github.com/octabyte/license-client/queue"
	"github.com/octabyte/license-client/utils"
	"go.uber.org/zap"
)

// QueueNotifier publishes notifications as JSON events so a separate
// process (desktop tray, chat bridge) can present them.
type QueueNotifier struct {
	publisher queue.Publisher
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time
}

func NewQueueNotifier(publisher queue.Publisher, logger *zap.Logger) *QueueNotifier {
	if logger == nil {
		logger = zap.L()
	}
	return &QueueNotifier{
		publisher: publisher,
		logger:    logger,
		timeout:   5 * time.Second,
		now:       time.Now,
	}
}

func (q *QueueNotifier) Notify(ctx context.Context, n Notification) {
	q.publish(ctx, Event{EventName: EventNotification, Payload: n, Timestamp: q.now().UTC()})
}

// RedirectToLogin publishes a login_required event.
func (q *QueueNotifier) RedirectToLogin(ctx context.Context) {
	q.publish(ctx, Event{
		EventName: EventLoginRequired,
		Payload: Notification{
			Title:       "Session expired",
			Description: LoginPath,
			Variant:     VariantDefault,
		},
		Timestamp: q.now().UTC(),
	})
}

func (q *QueueNotifier) publish(ctx context.Context, event Event) {
	body, err := utils.StructToBytes(event)
	if err != nil {
		q.logger.Error("failed to encode notification", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
	defer cancel()

	if err := q.publisher.Publish(ctx, body); err != nil {
		q.logger.Warn("failed to publish notification",
			zap.String("event", event.EventName),
			zap.Error(err),
		)
	}
}

func (q *QueueNotifier) Close() error {
	return q.publisher.Close()
}
