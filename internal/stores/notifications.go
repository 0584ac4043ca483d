package stores

import (
	"context"
	"slices"
	"sync"

	"github.com/desertthunder/sonicvision/internal/models"
)

// NotificationsAPI is the backend surface used by [Notifications]. *api.Client satisfies it.
type NotificationsAPI interface {
	Notifications(ctx context.Context) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id int) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id int) error
}

// Notifications mirrors the inbox.
type Notifications struct {
	api NotificationsAPI

	mu      sync.RWMutex
	items   []models.Notification
	loading bool
	err     error
}

func NewNotifications(api NotificationsAPI) *Notifications {
	return &Notifications{api: api}
}

func (n *Notifications) Items() []models.Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.items)
}

func (n *Notifications) Loading() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.loading
}

func (n *Notifications) Err() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.err
}

// UnreadCount counts the items not yet marked read.
func (n *Notifications) UnreadCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	count := 0
	for _, item := range n.items {
		if !item.IsRead {
			count++
		}
	}
	return count
}

func (n *Notifications) Fetch(ctx context.Context) error {
	n.mu.Lock()
	n.loading = true
	n.mu.Unlock()

	items, err := n.api.Notifications(ctx)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.loading = false
	n.err = err
	if err == nil {
		n.items = items
	}
	return err
}

func (n *Notifications) MarkRead(ctx context.Context, id int) error {
	if err := n.api.MarkNotificationRead(ctx, id); err != nil {
		return n.fail(err)
	}
	n.apply(func(item *models.Notification) {
		if item.ID == id {
			item.IsRead = true
		}
	})
	return nil
}

func (n *Notifications) MarkAllRead(ctx context.Context) error {
	if err := n.api.MarkAllNotificationsRead(ctx); err != nil {
		return n.fail(err)
	}
	n.apply(func(item *models.Notification) { item.IsRead = true })
	return nil
}

func (n *Notifications) Delete(ctx context.Context, id int) error {
	if err := n.api.DeleteNotification(ctx, id); err != nil {
		return n.fail(err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = nil
	n.items = slices.DeleteFunc(n.items, func(item models.Notification) bool { return item.ID == id })
	return nil
}

func (n *Notifications) apply(fn func(item *models.Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = nil
	for i := range n.items {
		fn(&n.items[i])
	}
}

func (n *Notifications) fail(err error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
	return err
}
