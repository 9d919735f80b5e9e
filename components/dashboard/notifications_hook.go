package dashboard

import (
	"context"
	"errors"
)

// NotificationsClient delivers user-visible notifications (toasts, push, email).
type NotificationsClient interface {
	Notify(ctx context.Context, userID string, note Notification) error
}

// NotificationsHook forwards events that carry a notification to a client.
// Events without one are ignored.
type NotificationsHook struct {
	Client NotificationsClient
}

// DashboardUpdated publishes the event's notification, if any.
func (h *NotificationsHook) DashboardUpdated(ctx context.Context, event DashboardEvent) error {
	if h == nil || h.Client == nil || event.Notification == nil {
		return nil
	}
	return h.Client.Notify(ctx, event.UserID, *event.Notification)
}

// RefreshHooks fans an event out to several hooks, joining their errors.
type RefreshHooks []RefreshHook

// DashboardUpdated calls every non-nil hook.
func (hooks RefreshHooks) DashboardUpdated(ctx context.Context, event DashboardEvent) error {
	var errs []error
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook.DashboardUpdated(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
