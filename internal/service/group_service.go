package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/mmynk/cookie/internal/middleware"
	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage"
)

// Limits on group fields.
const (
	MaxGroupNameLength        = 100
	MaxGroupDescriptionLength = 500
	MinShareCodeLength        = 8
)

// GroupService serves group CRUD, membership, sharing and QR codes.
//
// Authorization failures answer 404 rather than 403: clients treat 403 as an
// expired session and sign the user out.
type GroupService struct {
	store     storage.Store
	publicURL string
	logger    *slog.Logger
}

// NewGroupService creates a new GroupService with the given storage backend.
// publicURL is the base of the join links encoded in QR codes.
func NewGroupService(store storage.Store, publicURL string, logger *slog.Logger) *GroupService {
	return &GroupService{
		store:     store,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListGroups returns the caller's groups.
func (s *GroupService) ListGroups(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	groups, err := s.store.ListGroupsForUser(r.Context(), userID)
	if err != nil {
		writeInternal(w, s.logger, "ListGroups failed", err)
		return
	}

	s.logger.Debug("ListGroups successful", "user_id", userID, "count", len(groups))
	writeData(w, http.StatusOK, "", groups)
}

// CreateGroup creates a new group owned by the caller.
func (s *GroupService) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	fields := FieldErrors{}
	if name == "" {
		fields.Add("name", "The name field is required.")
	} else if utf8.RuneCountInString(name) > MaxGroupNameLength {
		fields.Add("name", "The name may not be greater than 100 characters.")
	}
	if utf8.RuneCountInString(req.Description) > MaxGroupDescriptionLength {
		fields.Add("description", "The description may not be greater than 500 characters.")
	}
	if len(fields) > 0 {
		writeValidation(w, fields)
		return
	}

	group := &models.Group{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedBy:   middleware.GetUserID(r.Context()),
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		writeInternal(w, s.logger, "CreateGroup failed", err)
		return
	}

	created, err := s.store.GetGroup(r.Context(), group.ID)
	if err != nil {
		writeInternal(w, s.logger, "Failed to fetch created group", err)
		return
	}

	s.logger.Info("Group created", "group_id", group.ID, "user_id", group.CreatedBy)
	writeData(w, http.StatusCreated, "Group created successfully.", created)
}

// GetGroup returns a group the caller belongs to.
func (s *GroupService) GetGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, "", group)
}

// DeleteGroup removes a group. Only the creator may delete it.
func (s *GroupService) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteGroup(r.Context(), group.ID); err != nil {
		writeInternal(w, s.logger, "DeleteGroup failed", err)
		return
	}

	s.logger.Info("Group deleted", "group_id", group.ID)
	writeMessage(w, http.StatusOK, "Group deleted successfully.")
}

// ListMembers returns the group's members.
func (s *GroupService) ListMembers(w http.ResponseWriter, r *http.Request) {
	group, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	members, err := s.store.ListMembers(r.Context(), group.ID)
	if err != nil {
		writeInternal(w, s.logger, "ListMembers failed", err)
		return
	}
	writeData(w, http.StatusOK, "", members)
}

// ToggleSharing flips the group's sharing flag. Only the creator may toggle.
func (s *GroupService) ToggleSharing(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}
	shared := !bool(group.IsShared)
	if err := s.store.SetGroupShared(r.Context(), group.ID, shared); err != nil {
		writeInternal(w, s.logger, "ToggleSharing failed", err)
		return
	}
	group.IsShared = models.Flag(shared)

	message := "Group sharing disabled."
	if shared {
		message = "Group sharing enabled."
	}
	s.logger.Info("Group sharing toggled", "group_id", group.ID, "is_shared", shared)
	writeData(w, http.StatusOK, message, group)
}

// QRCode renders the group's join link as SVG. The group must be shared.
func (s *GroupService) QRCode(w http.ResponseWriter, r *http.Request) {
	group, ok := s.memberGroup(w, r)
	if !ok {
		return
	}
	if !group.IsShared {
		writeMessage(w, http.StatusConflict, "Group sharing is disabled.")
		return
	}

	svg, err := RenderQRSVG(JoinURL(s.publicURL, group.ShareCode))
	if err != nil {
		writeInternal(w, s.logger, "Failed to render QR code", err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(svg))
}

type joinRequest struct {
	Code string `json:"code"`
}

type joinData struct {
	GroupID int64 `json:"group_id"`
}

// JoinGroup adds the caller to the shared group identified by a share code.
func (s *GroupService) JoinGroup(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	code := strings.TrimSpace(req.Code)
	if len(code) < MinShareCodeLength {
		writeValidation(w, FieldErrors{"code": {"The code must be at least 8 characters."}})
		return
	}

	group, err := s.store.GetGroupByShareCode(r.Context(), strings.ToUpper(code))
	if errors.Is(err, storage.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Invalid share code.")
		return
	}
	if err != nil {
		writeInternal(w, s.logger, "JoinGroup lookup failed", err)
		return
	}
	if !group.IsShared {
		writeValidation(w, FieldErrors{"code": {"This group is not accepting new members."}})
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := s.store.AddMember(r.Context(), group.ID, userID); err != nil {
		writeInternal(w, s.logger, "JoinGroup failed", err)
		return
	}

	s.logger.Info("Group joined", "group_id", group.ID, "user_id", userID)
	writeData(w, http.StatusOK, "Joined group successfully.", joinData{GroupID: group.ID})
}

// memberGroup loads the {id} group and checks the caller belongs to it.
// It writes the response and returns false on any failure.
func (s *GroupService) memberGroup(w http.ResponseWriter, r *http.Request) (*models.Group, bool) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Group not found.")
		return nil, false
	}
	return loadMemberGroup(r.Context(), w, s.store, s.logger, id, middleware.GetUserID(r.Context()))
}

// ownedGroup loads the {id} group and checks the caller created it.
func (s *GroupService) ownedGroup(w http.ResponseWriter, r *http.Request) (*models.Group, bool) {
	group, ok := s.memberGroup(w, r)
	if !ok {
		return nil, false
	}
	if group.CreatedBy != middleware.GetUserID(r.Context()) {
		writeMessage(w, http.StatusNotFound, "Group not found.")
		return nil, false
	}
	return group, true
}

func loadMemberGroup(ctx context.Context, w http.ResponseWriter, store storage.Store, logger *slog.Logger, groupID, userID int64) (*models.Group, bool) {
	group, err := store.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Group not found.")
		return nil, false
	}
	if err != nil {
		writeInternal(w, logger, "Failed to load group", err)
		return nil, false
	}

	member, err := store.IsMember(ctx, groupID, userID)
	if err != nil {
		writeInternal(w, logger, "Failed to check membership", err)
		return nil, false
	}
	if !member {
		logger.Warn("Group access denied", "group_id", groupID, "user_id", userID)
		writeMessage(w, http.StatusNotFound, "Group not found.")
		return nil, false
	}
	return group, true
}
