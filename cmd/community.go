package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/stores"
)

func (r *Runner) communityStore(ctx context.Context) (*stores.Community, error) {
	client, err := r.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	return stores.NewCommunity(client), nil
}

func (r *Runner) notificationStore(ctx context.Context) (*stores.Notifications, error) {
	client, err := r.apiClient(ctx)
	if err != nil {
		return nil, err
	}
	return stores.NewNotifications(client), nil
}

// PostsList prints the community feed.
func (r *Runner) PostsList(ctx context.Context, cmd *cli.Command) error {
	feed, err := r.communityStore(ctx)
	if err != nil {
		return err
	}
	if err := feed.Fetch(ctx); err != nil {
		return err
	}

	posts := feed.Posts()
	if cmd.Bool("json") {
		return r.writeJSON(posts, cmd.Bool("pretty"))
	}

	for _, p := range posts {
		r.writePlain("#%d %s [%s]\n", p.ID, p.Title, p.Category)
		r.writePlain("   by %s • %s • ♥ %d • %d comments\n", p.Author, p.CreatedAt.Local().Format(time.DateTime), p.Likes, len(p.Comments))
		if p.Content != "" {
			r.writePlain("   %s\n", p.Content)
		}
		for _, c := range p.Comments {
			r.writePlain("     ↳ %s: %s\n", c.Author, c.Content)
		}
		r.writePlain("\n")
	}
	return nil
}

// PostsCreate publishes a post.
func (r *Runner) PostsCreate(ctx context.Context, cmd *cli.Command) error {
	feed, err := r.communityStore(ctx)
	if err != nil {
		return err
	}

	post, err := feed.Create(ctx, models.NewPost{
		Title:    cmd.String("title"),
		Content:  cmd.String("content"),
		Category: cmd.String("category"),
		MediaURL: cmd.String("media-url"),
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Published post #%d\n", post.ID)
}

// PostsLike likes a post.
func (r *Runner) PostsLike(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	feed, err := r.communityStore(ctx)
	if err != nil {
		return err
	}
	if err := feed.Like(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Liked post #%d\n", id)
}

// PostsComment adds a comment to a post.
func (r *Runner) PostsComment(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	text, err := stringArg(cmd, "text")
	if err != nil {
		return err
	}
	feed, err := r.communityStore(ctx)
	if err != nil {
		return err
	}

	comment, err := feed.Comment(ctx, id, text)
	if err != nil {
		return err
	}
	return r.writePlain("✓ Comment #%d added to post #%d\n", comment.ID, id)
}

// PostsDelete deletes a post.
func (r *Runner) PostsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	feed, err := r.communityStore(ctx)
	if err != nil {
		return err
	}
	if err := feed.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted post #%d\n", id)
}

// NotificationsList prints notifications, newest first as served.
func (r *Runner) NotificationsList(ctx context.Context, cmd *cli.Command) error {
	inbox, err := r.notificationStore(ctx)
	if err != nil {
		return err
	}
	if err := inbox.Fetch(ctx); err != nil {
		return err
	}

	items := inbox.Items()
	if cmd.Bool("unread") {
		unread := items[:0]
		for _, n := range items {
			if !n.IsRead {
				unread = append(unread, n)
			}
		}
		items = unread
	}

	if cmd.Bool("json") {
		return r.writeJSON(items, cmd.Bool("pretty"))
	}

	r.writePlain("%d unread\n\n", inbox.UnreadCount())
	for _, n := range items {
		mark := " "
		if !n.IsRead {
			mark = "•"
		}
		r.writePlain("%s #%d [%s] %s\n", mark, n.ID, n.Type, n.Title)
		if n.Message != "" {
			r.writePlain("    %s\n", n.Message)
		}
	}
	return nil
}

// NotificationsRead marks one notification read, or all of them when no ID is given.
func (r *Runner) NotificationsRead(ctx context.Context, cmd *cli.Command) error {
	inbox, err := r.notificationStore(ctx)
	if err != nil {
		return err
	}

	if cmd.StringArg("id") == "" {
		if err := inbox.MarkAllRead(ctx); err != nil {
			return err
		}
		return r.writePlain("✓ All notifications marked read\n")
	}

	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := inbox.MarkRead(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Notification #%d marked read\n", id)
}
