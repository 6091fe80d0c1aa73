package screens

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mmynk/cookie/internal/models"
)

// MaxContentLength bounds post and story text.
const MaxContentLength = 500

func checkContent(v *validation, content string) {
	v.required("content", content, "Content is required.")
	v.maxLen("content", strings.TrimSpace(content), MaxContentLength,
		fmt.Sprintf("Content may not be longer than %d characters.", MaxContentLength))
}

// CreatePostScreen posts to a group.
type CreatePostScreen struct {
	form
	GroupID int64
	Content string

	// OnCreated runs after a successful post, e.g. to reload the group.
	OnCreated func(context.Context)

	created *models.Post
}

func NewCreatePostScreen(env *Env, groupID int64) *CreatePostScreen {
	return &CreatePostScreen{form: form{env: env}, GroupID: groupID}
}

// Submit creates the post and clears the content.
func (s *CreatePostScreen) Submit(ctx context.Context) error {
	err := s.submit(ctx,
		func(v *validation) { checkContent(v, s.Content) },
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			post, err := s.env.API.CreatePost(ctx, s.GroupID, strings.TrimSpace(s.Content))
			if err != nil {
				return "", err
			}
			s.created = post
			return "Post created successfully.", nil
		})
	if err != nil {
		return err
	}
	s.Content = ""
	if s.OnCreated != nil {
		s.OnCreated(ctx)
	}
	return nil
}

// Created returns the post made by the last successful Submit.
func (s *CreatePostScreen) Created() *models.Post {
	return s.created
}

// CreateStoryScreen posts a story, optionally visible only to some members.
type CreateStoryScreen struct {
	form
	GroupID    int64
	Content    string
	SharedWith []int64

	// Members are the selectable recipients.
	Members []models.Member

	OnCreated func(context.Context)

	created *models.Story
}

func NewCreateStoryScreen(env *Env, groupID int64, members []models.Member) *CreateStoryScreen {
	return &CreateStoryScreen{form: form{env: env}, GroupID: groupID, Members: members}
}

// Submit creates the story and clears the form.
func (s *CreateStoryScreen) Submit(ctx context.Context) error {
	err := s.submit(ctx,
		func(v *validation) {
			checkContent(v, s.Content)
			for _, id := range s.SharedWith {
				if !slices.ContainsFunc(s.Members, func(m models.Member) bool { return m.UserID == id }) {
					v.add("shared_with", fmt.Sprintf("User %d is not a member of this group.", id))
				}
			}
		},
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			story, err := s.env.API.CreateStory(ctx, s.GroupID, strings.TrimSpace(s.Content), s.SharedWith)
			if err != nil {
				return "", err
			}
			s.created = story
			return "Story created successfully.", nil
		})
	if err != nil {
		return err
	}
	s.Content = ""
	s.SharedWith = nil
	if s.OnCreated != nil {
		s.OnCreated(ctx)
	}
	return nil
}

// Created returns the story made by the last successful Submit.
func (s *CreateStoryScreen) Created() *models.Story {
	return s.created
}
