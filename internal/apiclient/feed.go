package apiclient

import (
	"context"
	"net/http"

	"github.com/mmynk/cookie/internal/models"
)

// GetGroupPosts lists a group's posts, newest first.
func (c *Client) GetGroupPosts(ctx context.Context, groupID int64) ([]models.Post, error) {
	const endpoint = "posts.list"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     groupPath(groupID, "/posts"),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return unwrapList[models.Post](endpoint, body, "posts")
}

// GetGroupStories lists the group's unexpired stories visible to the caller.
func (c *Client) GetGroupStories(ctx context.Context, groupID int64) ([]models.Story, error) {
	const endpoint = "stories.list"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodGet,
		path:     groupPath(groupID, "/stories"),
		auth:     true,
	})
	if err != nil {
		return nil, err
	}
	return unwrapList[models.Story](endpoint, body, "stories")
}

// CreatePost posts content to a group.
func (c *Client) CreatePost(ctx context.Context, groupID int64, content string) (*models.Post, error) {
	const endpoint = "posts.create"
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     "/api/groups/posts",
		body: struct {
			GroupID int64  `json:"group_id"`
			Content string `json:"content"`
		}{groupID, content},
		csrf: true,
		auth: true,
	})
	if err != nil {
		return nil, err
	}
	post, err := unwrapData[models.Post](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// CreateStory posts a story. An empty sharedWith shares it with every member.
func (c *Client) CreateStory(ctx context.Context, groupID int64, content string, sharedWith []int64) (*models.Story, error) {
	const endpoint = "stories.create"
	if sharedWith == nil {
		sharedWith = []int64{}
	}
	body, err := c.do(ctx, request{
		endpoint: endpoint,
		method:   http.MethodPost,
		path:     "/api/stories",
		body: struct {
			GroupID    int64   `json:"group_id"`
			Content    string  `json:"content"`
			SharedWith []int64 `json:"shared_with"`
		}{groupID, content, sharedWith},
		csrf: true,
		auth: true,
	})
	if err != nil {
		return nil, err
	}
	story, err := unwrapData[models.Story](endpoint, body)
	if err != nil {
		return nil, err
	}
	return &story, nil
}
