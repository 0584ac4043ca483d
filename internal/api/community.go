package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/sonicvision/internal/models"
	"github.com/desertthunder/sonicvision/internal/shared"
)

// Posts lists the community feed, newest first.
func (c *Client) Posts(ctx context.Context) ([]models.Post, error) {
	return list[models.Post](ctx, c, "/posts/", nil)
}

// CreatePost publishes a post.
func (c *Client) CreatePost(ctx context.Context, post models.NewPost) (*models.Post, error) {
	var p models.Post
	if err := c.call(ctx, http.MethodPost, "/posts/", nil, post, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d/", id), nil, nil, nil)
}

// LikePost likes a post.
func (c *Client) LikePost(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/like/", id), nil, nil, nil)
}

// AddComment replies to a post.
func (c *Client) AddComment(ctx context.Context, postID int, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: comment content", shared.ErrMissingArgument)
	}
	var cm models.Comment
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/posts/%d/comments/", postID), nil, map[string]string{"content": content}, &cm); err != nil {
		return nil, err
	}
	return &cm, nil
}

// DeleteComment removes a comment from a post.
func (c *Client) DeleteComment(ctx context.Context, postID, commentID int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/posts/%d/comments/%d/", postID, commentID), nil, nil, nil)
}
