package apiclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/service/servicetest"
	"github.com/mmynk/cookie/internal/session"
)

// signUp registers a user against the backend and returns a logged-in client.
func signUp(t *testing.T, backend *servicetest.Backend, name, email string) *apiclient.Client {
	t.Helper()
	c, err := apiclient.New(backend.URL, session.NewMemoryStore())
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Register(ctx, apiclient.Registration{
		Name:                 name,
		Email:                email,
		Password:             "password123",
		PasswordConfirmation: "password123",
		Phone:                "555-0100",
	})
	require.NoError(t, err)

	res, err := c.Login(ctx, email, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	return c
}

func TestBackend_LoginStoresCompleteUser(t *testing.T) {
	backend := servicetest.New(t)
	c := signUp(t, backend, "Ada", "ada@example.com")

	s, ok, err := c.Sessions().Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, s.Token)
	assert.True(t, s.User.Complete())
	assert.Equal(t, "ada@example.com", s.User.Email)

	user, err := c.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, user.ID)
}

func TestBackend_BadCredentials(t *testing.T) {
	backend := servicetest.New(t)
	signUp(t, backend, "Ada", "ada@example.com")

	c, err := apiclient.New(backend.URL, session.NewMemoryStore())
	require.NoError(t, err)
	_, err = c.Login(context.Background(), "ada@example.com", "wrong-password")
	assert.True(t, apiclient.IsUnauthorized(err))
}

func TestBackend_RegisterValidation(t *testing.T) {
	backend := servicetest.New(t)
	c, err := apiclient.New(backend.URL, session.NewMemoryStore())
	require.NoError(t, err)

	_, err = c.Register(context.Background(), apiclient.Registration{
		Name:                 "Ada",
		Email:                "not-an-email",
		Password:             "password123",
		PasswordConfirmation: "password123",
		Phone:                "555",
	})
	apiErr, ok := apiclient.AsError(err)
	require.True(t, ok)
	assert.Equal(t, apiclient.KindValidation, apiErr.Kind)
	assert.Contains(t, apiErr.Fields, "email")
}

func TestBackend_PostRoundTrip(t *testing.T) {
	backend := servicetest.New(t)
	c := signUp(t, backend, "Ada", "ada@example.com")
	ctx := context.Background()

	group, err := c.CreateGroup(ctx, "Book club", "Monthly reads")
	require.NoError(t, err)

	post, err := c.CreatePost(ctx, group.ID, "hello group")
	require.NoError(t, err)
	assert.Equal(t, "hello group", post.Content)

	posts, err := c.GetGroupPosts(ctx, group.ID)
	require.NoError(t, err)
	require.NotEmpty(t, posts)
	assert.Equal(t, "hello group", posts[0].Content)
	assert.Equal(t, "Ada", posts[0].User.Name)
}

func TestBackend_JoinByShareCode(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()
	owner := signUp(t, backend, "Ada", "ada@example.com")
	guest := signUp(t, backend, "Bo", "bo@example.com")

	group, err := owner.CreateGroup(ctx, "Hikers", "")
	require.NoError(t, err)
	assert.False(t, bool(group.IsShared))

	// Not shared yet.
	_, err = guest.JoinGroup(ctx, group.ShareCode)
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))

	// A non-member cannot read the group; that must not look like an expired session.
	_, err = guest.GetGroupDetails(ctx, group.ID)
	require.Error(t, err)
	assert.False(t, apiclient.IsUnauthorized(err))

	shared, err := owner.ToggleGroupSharing(ctx, group.ID)
	require.NoError(t, err)
	assert.True(t, bool(shared.IsShared))

	res, err := guest.JoinGroup(ctx, servicetest.PublicURL+"/join?code="+group.ShareCode)
	require.NoError(t, err)
	assert.Equal(t, group.ID, res.Data.GroupID)

	// Joining twice is harmless.
	_, err = guest.JoinGroup(ctx, group.ShareCode)
	require.NoError(t, err)

	members, err := guest.GetGroupMembers(ctx, group.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	groups, err := guest.GetGroups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Ada", groups[0].CreatorName())

	// Only the creator may delete.
	_, err = guest.DeleteGroup(ctx, group.ID)
	require.Error(t, err)
	assert.False(t, apiclient.IsUnauthorized(err))

	_, err = owner.DeleteGroup(ctx, group.ID)
	require.NoError(t, err)
	groups, err = guest.GetGroups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestBackend_UnknownShareCode(t *testing.T) {
	backend := servicetest.New(t)
	c := signUp(t, backend, "Ada", "ada@example.com")

	_, err := c.JoinGroup(context.Background(), "FFFFFFFF")
	apiErr, ok := apiclient.AsError(err)
	require.True(t, ok)
	assert.Equal(t, apiclient.KindServer, apiErr.Kind)
	assert.Equal(t, 404, apiErr.Status)
}

func TestBackend_QR(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()
	c := signUp(t, backend, "Ada", "ada@example.com")

	group, err := c.CreateGroup(ctx, "QR", "")
	require.NoError(t, err)

	_, err = c.GetGroupQR(ctx, group.ID)
	apiErr, ok := apiclient.AsError(err)
	require.True(t, ok)
	assert.Equal(t, 409, apiErr.Status)

	_, err = c.ToggleGroupSharing(ctx, group.ID)
	require.NoError(t, err)
	svg, err := c.GetGroupQR(ctx, group.ID)
	require.NoError(t, err)
	assert.Contains(t, svg, "<svg")
}

func TestBackend_Stories(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()
	owner := signUp(t, backend, "Ada", "ada@example.com")
	guest := signUp(t, backend, "Bo", "bo@example.com")
	outsider := signUp(t, backend, "Cy", "cy@example.com")

	group, err := owner.CreateGroup(ctx, "Stories", "")
	require.NoError(t, err)
	_, err = owner.ToggleGroupSharing(ctx, group.ID)
	require.NoError(t, err)
	for _, c := range []*apiclient.Client{guest, outsider} {
		_, err = c.JoinGroup(ctx, group.ShareCode)
		require.NoError(t, err)
	}

	guestSession, _, err := guest.Sessions().Get(ctx)
	require.NoError(t, err)

	_, err = owner.CreateStory(ctx, group.ID, "for everyone", nil)
	require.NoError(t, err)
	private, err := owner.CreateStory(ctx, group.ID, "just for Bo", []int64{guestSession.User.ID})
	require.NoError(t, err)
	assert.Equal(t, []int64{guestSession.User.ID}, private.SharedWith)
	assert.True(t, private.ExpiresAt.After(private.CreatedAt))

	contents := func(stories []models.Story) []string {
		out := make([]string, 0, len(stories))
		for _, s := range stories {
			out = append(out, s.Content)
		}
		return out
	}

	ownerView, err := owner.GetGroupStories(ctx, group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"for everyone", "just for Bo"}, contents(ownerView))

	guestView, err := guest.GetGroupStories(ctx, group.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"for everyone", "just for Bo"}, contents(guestView))

	outsiderView, err := outsider.GetGroupStories(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"for everyone"}, contents(outsiderView))

	// Recipients must be members.
	_, err = owner.CreateStory(ctx, group.ID, "nope", []int64{99999})
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))
}

func TestBackend_PasswordReset(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()
	signUp(t, backend, "Ada", "ada@example.com")

	c, err := apiclient.New(backend.URL, session.NewMemoryStore())
	require.NoError(t, err)

	_, err = c.RequestForgetPassword(ctx, "ada@example.com")
	require.NoError(t, err)

	// Resetting before verification is refused.
	_, err = c.ResetPassword(ctx, "ada@example.com", "newpassword1")
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))

	otp, err := backend.Store.GetOTP(ctx, "ada@example.com", models.OTPPasswordReset)
	require.NoError(t, err)

	wrong := "000000"
	if otp.Code == wrong {
		wrong = "111111"
	}
	_, err = c.VerifyForgetPassword(ctx, "ada@example.com", wrong)
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))

	_, err = c.VerifyForgetPassword(ctx, "ada@example.com", otp.Code)
	require.NoError(t, err)

	_, err = c.ResetPassword(ctx, "ada@example.com", "newpassword1")
	require.NoError(t, err)

	_, err = c.Login(ctx, "ada@example.com", "newpassword1")
	require.NoError(t, err)
}

func TestBackend_VerifyAccountOTP(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()

	c, err := apiclient.New(backend.URL, session.NewMemoryStore())
	require.NoError(t, err)
	res, err := c.Register(ctx, apiclient.Registration{
		Name:                 "Ada",
		Email:                "ada@example.com",
		Password:             "password123",
		PasswordConfirmation: "password123",
		Phone:                "555",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	otp, err := backend.Store.GetOTP(ctx, "ada@example.com", models.OTPAccount)
	require.NoError(t, err)

	_, err = c.VerifyOTP(ctx, otp.Code)
	require.NoError(t, err)

	user, err := c.GetUser(ctx)
	require.NoError(t, err)
	assert.NotNil(t, user.VerifiedAt)
}

func TestBackend_LogoutDropsAuthorization(t *testing.T) {
	backend := servicetest.New(t)
	c := signUp(t, backend, "Ada", "ada@example.com")
	ctx := context.Background()

	require.NoError(t, c.Logout(ctx))
	_, err := c.GetGroups(ctx)
	assert.True(t, apiclient.IsUnauthorized(err))
}
