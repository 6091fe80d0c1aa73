package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *SQLiteStore, name, email string) *models.User {
	t.Helper()

	user := &models.User{Name: name, Email: email, PasswordHash: "hash"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "alice@example.com")
	bob := createUser(t, store, "Bob", "bob@example.com")

	t.Run("CreateUser assigns ID", func(t *testing.T) {
		if alice.ID == 0 || bob.ID == 0 {
			t.Fatal("Expected user IDs to be assigned")
		}
		if alice.ID == bob.ID {
			t.Error("Expected distinct user IDs")
		}
	})

	t.Run("GetUserByEmail returns nil for unknown email", func(t *testing.T) {
		user, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if user != nil {
			t.Errorf("Expected nil user, got %+v", user)
		}
	})

	t.Run("CreateGroup makes creator a member", func(t *testing.T) {
		group := &models.Group{Name: "Book Club", Description: "Monthly reads", CreatedBy: alice.ID}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if group.ID == 0 {
			t.Error("Expected group ID to be generated")
		}
		if len(group.ShareCode) != 8 {
			t.Errorf("Expected 8-character share code, got %q", group.ShareCode)
		}

		member, err := store.IsMember(ctx, group.ID, alice.ID)
		if err != nil {
			t.Fatalf("IsMember failed: %v", err)
		}
		if !member {
			t.Error("Expected creator to be a member")
		}

		got, err := store.GetGroup(ctx, group.ID)
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.CreatorName() != "Alice" {
			t.Errorf("Expected creator 'Alice', got '%s'", got.CreatorName())
		}
		if got.IsShared {
			t.Error("Expected new group to be unshared")
		}
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, 9999)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("share code lookup and membership", func(t *testing.T) {
		group := &models.Group{Name: "Hikers", CreatedBy: alice.ID}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if err := store.SetGroupShared(ctx, group.ID, true); err != nil {
			t.Fatalf("SetGroupShared failed: %v", err)
		}

		found, err := store.GetGroupByShareCode(ctx, group.ShareCode)
		if err != nil {
			t.Fatalf("GetGroupByShareCode failed: %v", err)
		}
		if found.ID != group.ID || !found.IsShared {
			t.Errorf("Unexpected group: %+v", found)
		}

		// Joining twice is a no-op.
		for i := 0; i < 2; i++ {
			if err := store.AddMember(ctx, group.ID, bob.ID); err != nil {
				t.Fatalf("AddMember failed: %v", err)
			}
		}
		members, err := store.ListMembers(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListMembers failed: %v", err)
		}
		if len(members) != 2 {
			t.Fatalf("Expected 2 members, got %d", len(members))
		}
		if members[0].UserName != "Alice" || members[1].UserEmail != "bob@example.com" {
			t.Errorf("Unexpected members: %+v", members)
		}

		bobGroups, err := store.ListGroupsForUser(ctx, bob.ID)
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if len(bobGroups) != 1 || bobGroups[0].ID != group.ID {
			t.Errorf("Expected bob to see only %d, got %+v", group.ID, bobGroups)
		}
	})

	t.Run("ListGroupsForUser is empty, not nil", func(t *testing.T) {
		carol := createUser(t, store, "Carol", "carol@example.com")
		groups, err := store.ListGroupsForUser(ctx, carol.ID)
		if err != nil {
			t.Fatalf("ListGroupsForUser failed: %v", err)
		}
		if groups == nil || len(groups) != 0 {
			t.Errorf("Expected empty slice, got %#v", groups)
		}
	})

	t.Run("DeleteGroup cascades posts", func(t *testing.T) {
		group := &models.Group{Name: "Temp", CreatedBy: alice.ID}
		if err := store.CreateGroup(ctx, group); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		post := &models.Post{GroupID: group.ID, Content: "bye", User: alice.Ref()}
		if err := store.CreatePost(ctx, post); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}

		if err := store.DeleteGroup(ctx, group.ID); err != nil {
			t.Fatalf("DeleteGroup failed: %v", err)
		}
		posts, err := store.ListPosts(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListPosts failed: %v", err)
		}
		if len(posts) != 0 {
			t.Errorf("Expected posts to cascade, got %d", len(posts))
		}

		if err := store.DeleteGroup(ctx, group.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSQLiteStore_Feed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "Alice", "alice@example.com")
	bob := createUser(t, store, "Bob", "bob@example.com")
	carol := createUser(t, store, "Carol", "carol@example.com")

	group := &models.Group{Name: "Friends", CreatedBy: alice.ID}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	t.Run("posts are newest first", func(t *testing.T) {
		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		for i, content := range []string{"first", "second"} {
			post := &models.Post{
				GroupID:   group.ID,
				Content:   content,
				User:      alice.Ref(),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}
			if err := store.CreatePost(ctx, post); err != nil {
				t.Fatalf("CreatePost failed: %v", err)
			}
		}

		posts, err := store.ListPosts(ctx, group.ID)
		if err != nil {
			t.Fatalf("ListPosts failed: %v", err)
		}
		if len(posts) != 2 {
			t.Fatalf("Expected 2 posts, got %d", len(posts))
		}
		if posts[0].Content != "second" || posts[1].Content != "first" {
			t.Errorf("Unexpected order: %q, %q", posts[0].Content, posts[1].Content)
		}
		if posts[0].User == nil || posts[0].User.Name != "Alice" {
			t.Errorf("Expected author Alice, got %+v", posts[0].User)
		}
	})

	t.Run("stories respect expiry and recipients", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)

		shared := &models.Story{
			GroupID:    group.ID,
			Content:    "for bob",
			User:       alice.Ref(),
			SharedWith: []int64{bob.ID},
			CreatedAt:  now,
			ExpiresAt:  now.Add(24 * time.Hour),
		}
		public := &models.Story{
			GroupID:   group.ID,
			Content:   "for everyone",
			User:      alice.Ref(),
			CreatedAt: now,
			ExpiresAt: now.Add(24 * time.Hour),
		}
		expired := &models.Story{
			GroupID:   group.ID,
			Content:   "old news",
			User:      alice.Ref(),
			CreatedAt: now.Add(-48 * time.Hour),
			ExpiresAt: now.Add(-24 * time.Hour),
		}
		for _, st := range []*models.Story{shared, public, expired} {
			if err := store.CreateStory(ctx, st); err != nil {
				t.Fatalf("CreateStory failed: %v", err)
			}
		}

		tests := []struct {
			viewer int64
			want   int
		}{
			{alice.ID, 2},
			{bob.ID, 2},
			{carol.ID, 1},
		}
		for _, tt := range tests {
			stories, err := store.ListStories(ctx, group.ID, tt.viewer, now)
			if err != nil {
				t.Fatalf("ListStories failed: %v", err)
			}
			if len(stories) != tt.want {
				t.Errorf("viewer %d: expected %d stories, got %d", tt.viewer, tt.want, len(stories))
			}
		}
	})
}

func TestSQLiteStore_OTP(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	otp := &models.OTP{Email: "alice@example.com", Purpose: models.OTPPasswordReset, Code: "123456"}
	if err := store.SaveOTP(ctx, otp); err != nil {
		t.Fatalf("SaveOTP failed: %v", err)
	}
	if err := store.MarkOTPVerified(ctx, otp.Email, otp.Purpose, time.Now()); err != nil {
		t.Fatalf("MarkOTPVerified failed: %v", err)
	}

	got, err := store.GetOTP(ctx, otp.Email, otp.Purpose)
	if err != nil {
		t.Fatalf("GetOTP failed: %v", err)
	}
	if got.Code != "123456" || got.VerifiedAt == nil {
		t.Errorf("Unexpected otp: %+v", got)
	}

	// A new code resets verification.
	otp.Code = "654321"
	if err := store.SaveOTP(ctx, otp); err != nil {
		t.Fatalf("SaveOTP failed: %v", err)
	}
	got, err = store.GetOTP(ctx, otp.Email, otp.Purpose)
	if err != nil {
		t.Fatalf("GetOTP failed: %v", err)
	}
	if got.Code != "654321" || got.VerifiedAt != nil {
		t.Errorf("Expected fresh unverified code, got %+v", got)
	}

	if err := store.DeleteOTP(ctx, otp.Email, otp.Purpose); err != nil {
		t.Fatalf("DeleteOTP failed: %v", err)
	}
	if _, err := store.GetOTP(ctx, otp.Email, otp.Purpose); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
