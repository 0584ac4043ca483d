package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/sonicvision/internal/models"
)

// Notifications lists the user's inbox.
func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	return list[models.Notification](ctx, c, "/notifications/", nil)
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/notifications/%d/read/", id), nil, nil, nil)
}

// MarkAllNotificationsRead marks the whole inbox as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.call(ctx, http.MethodPut, "/notifications/read-all/", nil, nil, nil)
}

// DeleteNotification removes one notification.
func (c *Client) DeleteNotification(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/notifications/%d/", id), nil, nil, nil)
}

// ClearNotifications removes every notification.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/notifications/", nil, nil, nil)
}
