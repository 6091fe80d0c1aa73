package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/models"
)

// Group form limits.
const (
	MaxGroupNameLength        = 100
	MaxGroupDescriptionLength = 500
)

func checkGroup(v *validation, name, description string) {
	v.required("name", name, "Group name is required.")
	v.maxLen("name", strings.TrimSpace(name), MaxGroupNameLength,
		fmt.Sprintf("Group name may not be longer than %d characters.", MaxGroupNameLength))
	v.maxLen("description", strings.TrimSpace(description), MaxGroupDescriptionLength,
		fmt.Sprintf("Description may not be longer than %d characters.", MaxGroupDescriptionLength))
}

func checkShareCode(v *validation, code string) {
	if apiclient.ValidateShareCode(code) != nil {
		v.add("code", "Invalid QR code format.")
	}
}

// GroupsScreen lists the user's groups and creates, joins and deletes them.
type GroupsScreen struct {
	view[[]models.Group]
	action form
}

func NewGroupsScreen(env *Env) *GroupsScreen {
	return &GroupsScreen{
		view:   view[[]models.Group]{env: env},
		action: form{env: env},
	}
}

// Load fetches the group list.
func (s *GroupsScreen) Load(ctx context.Context) error {
	return s.load(ctx, func(ctx context.Context) ([]models.Group, error) {
		if _, err := s.env.requireSession(ctx); err != nil {
			return nil, err
		}
		return s.env.API.GetGroups(ctx)
	})
}

// Groups returns the loaded list. It is empty, not nil, before a load.
func (s *GroupsScreen) Groups() []models.Group {
	groups, ok := s.loader.Data()
	if !ok || groups == nil {
		return []models.Group{}
	}
	return groups
}

// ActionFeedback returns the outcome of the last create, join or delete.
func (s *GroupsScreen) ActionFeedback() Feedback {
	return s.action.Feedback()
}

// Create creates a group and refreshes the list.
func (s *GroupsScreen) Create(ctx context.Context, name, description string) error {
	err := s.action.submit(ctx,
		func(v *validation) { checkGroup(v, name, description) },
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			if _, err := s.env.API.CreateGroup(ctx, strings.TrimSpace(name), strings.TrimSpace(description)); err != nil {
				return "", err
			}
			return "Group created!", nil
		})
	if err != nil {
		return err
	}
	return s.Load(ctx)
}

// Join joins the group behind a scanned or typed payload, refreshes the list
// and opens the group.
func (s *GroupsScreen) Join(ctx context.Context, payload string) error {
	code := apiclient.NormalizeShareCode(payload)
	var joined int64
	err := s.action.submit(ctx,
		func(v *validation) { checkShareCode(v, code) },
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			res, err := s.env.API.JoinGroup(ctx, code)
			if err != nil {
				return "", err
			}
			joined = res.Data.GroupID
			if joined == 0 {
				return "Joined group, but group ID not found.", nil
			}
			return orDefault(res.Message, "Joined group!"), nil
		})
	if err != nil || joined == 0 {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	s.env.Nav.Push(GroupRoute(joined))
	return nil
}

// Delete deletes a group and refreshes the list.
func (s *GroupsScreen) Delete(ctx context.Context, groupID int64) error {
	err := s.action.submit(ctx, nil, func(ctx context.Context) (string, error) {
		if _, err := s.env.requireSession(ctx); err != nil {
			return "", err
		}
		msg, err := s.env.API.DeleteGroup(ctx, groupID)
		if err != nil {
			return "", err
		}
		return orDefault(msg, "Group deleted."), nil
	})
	if err != nil {
		return err
	}
	return s.Load(ctx)
}

// CreateGroupScreen is the standalone create-group form.
type CreateGroupScreen struct {
	form
	Name        string
	Description string

	created *models.Group
}

func NewCreateGroupScreen(env *Env) *CreateGroupScreen {
	return &CreateGroupScreen{form: form{env: env}}
}

// Submit creates the group and opens it.
func (s *CreateGroupScreen) Submit(ctx context.Context) error {
	return s.submit(ctx,
		func(v *validation) { checkGroup(v, s.Name, s.Description) },
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			group, err := s.env.API.CreateGroup(ctx, strings.TrimSpace(s.Name), strings.TrimSpace(s.Description))
			if err != nil {
				return "", err
			}
			s.created = group
			s.env.Nav.Push(GroupRoute(group.ID))
			return "Group created successfully!", nil
		})
}

// Created returns the group made by the last successful Submit.
func (s *CreateGroupScreen) Created() *models.Group {
	return s.created
}

// JoinScreen joins a group by share code or scanned QR payload.
type JoinScreen struct {
	form
	Code string

	groupID int64
}

func NewJoinScreen(env *Env) *JoinScreen {
	return &JoinScreen{form: form{env: env}}
}

// Submit joins and returns to the profile.
func (s *JoinScreen) Submit(ctx context.Context) error {
	code := apiclient.NormalizeShareCode(s.Code)
	return s.submit(ctx,
		func(v *validation) { checkShareCode(v, code) },
		func(ctx context.Context) (string, error) {
			if _, err := s.env.requireSession(ctx); err != nil {
				return "", err
			}
			res, err := s.env.API.JoinGroup(ctx, code)
			if err != nil {
				return "", err
			}
			s.groupID = res.Data.GroupID
			s.env.Nav.Replace(RouteProfile)
			return orDefault(res.Message, "Joined group!"), nil
		})
}

// GroupID returns the group joined by the last successful Submit.
func (s *JoinScreen) GroupID() int64 {
	return s.groupID
}
