package service

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/cookie/internal/middleware"
	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage"
)

// DefaultStoryTTL is how long a story stays visible.
const DefaultStoryTTL = 24 * time.Hour

// FeedService serves group posts and stories.
type FeedService struct {
	store    storage.Store
	storyTTL time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewFeedService creates a new FeedService. A non-positive storyTTL falls
// back to DefaultStoryTTL.
func NewFeedService(store storage.Store, storyTTL time.Duration, logger *slog.Logger) *FeedService {
	if storyTTL <= 0 {
		storyTTL = DefaultStoryTTL
	}
	return &FeedService{
		store:    store,
		storyTTL: storyTTL,
		now:      time.Now,
		logger:   logger,
	}
}

type createPostRequest struct {
	GroupID flexID `json:"group_id"`
	Content string `json:"content"`
}

type createStoryRequest struct {
	GroupID    flexID   `json:"group_id"`
	Content    string   `json:"content"`
	SharedWith []flexID `json:"shared_with"`
}

// ListPosts returns the {id} group's posts, newest first.
func (s *FeedService) ListPosts(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.memberGroupID(w, r)
	if !ok {
		return
	}
	posts, err := s.store.ListPosts(r.Context(), groupID)
	if err != nil {
		writeInternal(w, s.logger, "ListPosts failed", err)
		return
	}
	writeData(w, http.StatusOK, "", posts)
}

// CreatePost adds a post to a group the caller belongs to.
func (s *FeedService) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	fields := FieldErrors{}
	if req.GroupID <= 0 {
		fields.Add("group_id", "The group id field is required.")
	}
	if content == "" {
		fields.Add("content", "The content field is required.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	author, ok := s.author(w, r)
	if !ok {
		return
	}
	if _, ok := loadMemberGroup(r.Context(), w, s.store, s.logger, int64(req.GroupID), author.ID); !ok {
		return
	}

	post := &models.Post{
		GroupID: int64(req.GroupID),
		Content: content,
		User:    author,
	}
	if err := s.store.CreatePost(r.Context(), post); err != nil {
		writeInternal(w, s.logger, "CreatePost failed", err)
		return
	}

	s.logger.Info("Post created", "post_id", post.ID, "group_id", post.GroupID, "user_id", author.ID)
	writeData(w, http.StatusCreated, "Post created successfully.", post)
}

// ListStories returns the unexpired stories of the {id} group visible to the caller.
func (s *FeedService) ListStories(w http.ResponseWriter, r *http.Request) {
	groupID, ok := s.memberGroupID(w, r)
	if !ok {
		return
	}
	stories, err := s.store.ListStories(r.Context(), groupID, middleware.GetUserID(r.Context()), s.now())
	if err != nil {
		writeInternal(w, s.logger, "ListStories failed", err)
		return
	}
	writeData(w, http.StatusOK, "", stories)
}

// CreateStory adds a story to a group. Recipients must be group members.
func (s *FeedService) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req createStoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	fields := FieldErrors{}
	if req.GroupID <= 0 {
		fields.Add("group_id", "The group id field is required.")
	}
	if content == "" {
		fields.Add("content", "The content field is required.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	author, ok := s.author(w, r)
	if !ok {
		return
	}
	groupID := int64(req.GroupID)
	if _, ok := loadMemberGroup(r.Context(), w, s.store, s.logger, groupID, author.ID); !ok {
		return
	}

	members, err := s.store.ListMembers(r.Context(), groupID)
	if err != nil {
		writeInternal(w, s.logger, "Failed to list members", err)
		return
	}
	sharedWith := make([]int64, 0, len(req.SharedWith))
	for _, id := range req.SharedWith {
		uid := int64(id)
		isMember := slices.ContainsFunc(members, func(m models.Member) bool { return m.UserID == uid })
		if !isMember {
			writeValidation(w, FieldErrors{"shared_with": {"The selected shared with is invalid."}})
			return
		}
		if !slices.Contains(sharedWith, uid) {
			sharedWith = append(sharedWith, uid)
		}
	}

	now := s.now()
	story := &models.Story{
		GroupID:    groupID,
		Content:    content,
		User:       author,
		SharedWith: sharedWith,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.storyTTL),
	}
	if err := s.store.CreateStory(r.Context(), story); err != nil {
		writeInternal(w, s.logger, "CreateStory failed", err)
		return
	}

	s.logger.Info("Story created", "story_id", story.ID, "group_id", groupID, "recipients", len(sharedWith))
	writeData(w, http.StatusCreated, "Story created successfully.", story)
}

func (s *FeedService) memberGroupID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Group not found.")
		return 0, false
	}
	if _, ok := loadMemberGroup(r.Context(), w, s.store, s.logger, id, middleware.GetUserID(r.Context())); !ok {
		return 0, false
	}
	return id, true
}

func (s *FeedService) author(w http.ResponseWriter, r *http.Request) (*models.UserRef, bool) {
	user, err := s.store.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeInternal(w, s.logger, "Failed to load author", err)
		return nil, false
	}
	if user == nil {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated.")
		return nil, false
	}
	return user.Ref(), true
}
