package stores

import (
	"context"
	"slices"
	"sync"

	"github.com/desertthunder/sonicvision/internal/models"
)

// CommunityAPI is the backend surface used by [Community]. *api.Client satisfies it.
type CommunityAPI interface {
	Posts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, post models.NewPost) (*models.Post, error)
	DeletePost(ctx context.Context, id int) error
	LikePost(ctx context.Context, id int) error
	AddComment(ctx context.Context, postID int, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID int) error
}

// Community mirrors the post feed. Mutations update the local copy only after the backend accepts them.
type Community struct {
	api CommunityAPI

	mu      sync.RWMutex
	posts   []models.Post
	loading bool
	err     error
}

func NewCommunity(api CommunityAPI) *Community {
	return &Community{api: api}
}

// Posts returns a copy of the feed, newest first as served.
func (c *Community) Posts() []models.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.posts)
}

func (c *Community) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

func (c *Community) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *Community) Fetch(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	posts, err := c.api.Posts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.err = err
	if err == nil {
		c.posts = posts
	}
	return err
}

// Create publishes a post and puts it at the head of the feed.
func (c *Community) Create(ctx context.Context, post models.NewPost) (*models.Post, error) {
	created, err := c.api.CreatePost(ctx, post)
	if err != nil {
		return nil, c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = nil
	c.posts = slices.Insert(c.posts, 0, *created)
	return created, nil
}

// Like likes a post and increments its local like count.
func (c *Community) Like(ctx context.Context, id int) error {
	if err := c.api.LikePost(ctx, id); err != nil {
		return c.fail(err)
	}
	c.update(id, func(p *models.Post) { p.Likes++ })
	return nil
}

// Comment adds a comment to a post and appends it locally.
func (c *Community) Comment(ctx context.Context, postID int, content string) (*models.Comment, error) {
	comment, err := c.api.AddComment(ctx, postID, content)
	if err != nil {
		return nil, c.fail(err)
	}
	c.update(postID, func(p *models.Post) { p.Comments = append(p.Comments, *comment) })
	return comment, nil
}

func (c *Community) DeleteComment(ctx context.Context, postID, commentID int) error {
	if err := c.api.DeleteComment(ctx, postID, commentID); err != nil {
		return c.fail(err)
	}
	c.update(postID, func(p *models.Post) {
		p.Comments = slices.DeleteFunc(p.Comments, func(cm models.Comment) bool { return cm.ID == commentID })
	})
	return nil
}

func (c *Community) Delete(ctx context.Context, id int) error {
	if err := c.api.DeletePost(ctx, id); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = nil
	c.posts = slices.DeleteFunc(c.posts, func(p models.Post) bool { return p.ID == id })
	return nil
}

func (c *Community) update(id int, fn func(p *models.Post)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = nil
	for i := range c.posts {
		if c.posts[i].ID == id {
			fn(&c.posts[i])
			return
		}
	}
}

func (c *Community) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
	return err
}
