package screens

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/service/servicetest"
	"github.com/mmynk/cookie/internal/session"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubBackend answers every API call through respond and counts requests.
type stubBackend struct {
	mu      sync.Mutex
	paths   []string
	respond func(w http.ResponseWriter, r *http.Request)
}

func newStubBackend(t *testing.T, respond func(w http.ResponseWriter, r *http.Request)) (*stubBackend, *httptest.Server) {
	t.Helper()
	sb := &stubBackend{respond: respond}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sb.mu.Lock()
		sb.paths = append(sb.paths, r.Method+" "+r.URL.Path)
		sb.mu.Unlock()
		if r.URL.Path == "/sanctum/csrf-cookie" {
			http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "t", Path: "/"})
			w.WriteHeader(http.StatusNoContent)
			return
		}
		sb.respond(w, r)
	}))
	t.Cleanup(srv.Close)
	return sb, srv
}

func (sb *stubBackend) requests() []string {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return append([]string(nil), sb.paths...)
}

func status(code int, body string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

// newEnv returns an Env on baseURL whose session holds token (none when empty).
func newEnv(t *testing.T, baseURL, token string, start string) (*Env, *History) {
	t.Helper()
	store := session.NewMemoryStore()
	if token != "" {
		require.NoError(t, store.Set(context.Background(), token, models.User{ID: 1, Name: "Ada", Email: "ada@example.com"}))
	}
	client, err := apiclient.New(baseURL, store, apiclient.WithLogger(quietLogger))
	require.NoError(t, err)
	nav := NewHistory(start)
	return NewEnv(client, nav, quietLogger), nav
}

func hasSession(t *testing.T, env *Env) bool {
	t.Helper()
	_, ok, err := env.Sessions.Get(context.Background())
	require.NoError(t, err)
	return ok
}

// screenActions runs one action of every screen that talks to the backend.
func screenActions() map[string]func(ctx context.Context, env *Env) error {
	return map[string]func(ctx context.Context, env *Env) error{
		"profile": func(ctx context.Context, env *Env) error { return NewProfileScreen(env).Load(ctx) },
		"groups":  func(ctx context.Context, env *Env) error { return NewGroupsScreen(env).Load(ctx) },
		"groups create": func(ctx context.Context, env *Env) error {
			return NewGroupsScreen(env).Create(ctx, "Hikers", "")
		},
		"groups join": func(ctx context.Context, env *Env) error {
			return NewGroupsScreen(env).Join(ctx, "ABCDEF12")
		},
		"groups delete": func(ctx context.Context, env *Env) error { return NewGroupsScreen(env).Delete(ctx, 3) },
		"create group": func(ctx context.Context, env *Env) error {
			s := NewCreateGroupScreen(env)
			s.Name = "Hikers"
			return s.Submit(ctx)
		},
		"join": func(ctx context.Context, env *Env) error {
			s := NewJoinScreen(env)
			s.Code = "ABCDEF12"
			return s.Submit(ctx)
		},
		"group detail": func(ctx context.Context, env *Env) error { return NewGroupDetailScreen(env, 3).Load(ctx) },
		"qr":           func(ctx context.Context, env *Env) error { return NewQRScreen(env, 3).Load(ctx) },
		"share":        func(ctx context.Context, env *Env) error { return NewShareScreen(env, 3).Toggle(ctx) },
		"post": func(ctx context.Context, env *Env) error {
			s := NewCreatePostScreen(env, 3)
			s.Content = "hi"
			return s.Submit(ctx)
		},
		"story": func(ctx context.Context, env *Env) error {
			s := NewCreateStoryScreen(env, 3, nil)
			s.Content = "hi"
			return s.Submit(ctx)
		},
		"otp": func(ctx context.Context, env *Env) error {
			s := NewOTPScreen(env)
			s.OTP = "123456"
			return s.Submit(ctx)
		},
	}
}

func TestUnauthorizedClearsSessionAndRoutesToLogin(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		for name, action := range screenActions() {
			t.Run(name+"/"+http.StatusText(code), func(t *testing.T) {
				_, srv := newStubBackend(t, status(code, `{"message":"Unauthenticated."}`))
				env, nav := newEnv(t, srv.URL, "stale-token", "/somewhere")

				err := action(context.Background(), env)
				require.Error(t, err)
				assert.True(t, apiclient.IsUnauthorized(err))
				assert.False(t, hasSession(t, env), "session must be cleared")
				assert.Equal(t, RouteLogin, nav.Current())
			})
		}
	}
}

func TestMissingTokenRoutesToLoginWithoutRequests(t *testing.T) {
	for name, action := range screenActions() {
		t.Run(name, func(t *testing.T) {
			sb, srv := newStubBackend(t, status(http.StatusOK, `{}`))
			env, nav := newEnv(t, srv.URL, "", "/somewhere")

			err := action(context.Background(), env)
			assert.True(t, IsMissingToken(err), "got %v", err)
			assert.True(t, apiclient.IsUnauthorized(err))
			assert.Equal(t, msgLogin, Describe(err).Message)
			assert.Equal(t, RouteLogin, nav.Current())
			for _, req := range sb.requests() {
				assert.NotContains(t, req, "/api/", "no API call expected without a session")
			}
		})
	}
}

func TestMissingToken_NotMatchedByLookalike(t *testing.T) {
	// Same fields, no sentinel: a genuine session rejection.
	lookalike := &apiclient.Error{Kind: apiclient.KindUnauthorized, Endpoint: "session", Message: "Missing token"}
	assert.False(t, IsMissingToken(lookalike))
	assert.Equal(t, msgSession, Describe(lookalike).Message)

	// Mutating one returned error does not affect the next.
	_, srv := newStubBackend(t, status(http.StatusOK, `{}`))
	env, _ := newEnv(t, srv.URL, "", RouteGroups)
	_, first := env.requireSession(context.Background())
	apiErr, ok := apiclient.AsError(first)
	require.True(t, ok)
	apiErr.Kind = apiclient.KindServer

	_, second := env.requireSession(context.Background())
	assert.True(t, apiclient.IsUnauthorized(second))
	assert.True(t, IsMissingToken(second))
}

func TestGroupDetail_PartialFailureIsAllOrNothing(t *testing.T) {
	_, srv := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/groups/3":
			status(http.StatusOK, `{"data":{"id":3,"name":"G"}}`)(w, r)
		case "/api/groups/3/members":
			status(http.StatusOK, `[{"user_id":1,"user_name":"Ada"}]`)(w, r)
		case "/api/groups/3/stories":
			status(http.StatusOK, `{"data":{"stories":[]}}`)(w, r)
		default:
			status(http.StatusInternalServerError, `{"message":"Server Error"}`)(w, r)
		}
	})
	env, nav := newEnv(t, srv.URL, "tok", GroupRoute(3))

	s := NewGroupDetailScreen(env, 3)
	err := s.Load(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateErrored, s.State())
	assert.Nil(t, s.Detail())
	assert.Equal(t, "Server Error", s.Feedback().Message)
	assert.True(t, hasSession(t, env), "a server error keeps the session")
	assert.Equal(t, GroupRoute(3), nav.Current())
}

func TestGroupDetail_NetworkFailure(t *testing.T) {
	_, srv := newStubBackend(t, status(http.StatusOK, `{}`))
	url := srv.URL
	srv.Close()

	env, _ := newEnv(t, url, "tok", GroupRoute(3))
	s := NewGroupDetailScreen(env, 3)
	require.Error(t, s.Load(context.Background()))
	assert.Equal(t, StateErrored, s.State())
	assert.Equal(t, msgNetwork, s.Feedback().Message)
}

func TestGroupDetail_SetGroupResets(t *testing.T) {
	_, srv := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/3") {
			status(http.StatusOK, `{"id":3,"name":"G"}`)(w, r)
			return
		}
		status(http.StatusOK, `[]`)(w, r)
	})
	env, _ := newEnv(t, srv.URL, "tok", GroupRoute(3))

	s := NewGroupDetailScreen(env, 3)
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StateLoaded, s.State())
	assert.Equal(t, "G", s.Detail().Group.Name)

	s.SetGroup(4)
	assert.Equal(t, StateLoading, s.State())
	assert.Nil(t, s.Detail())
}

func TestGroupDetail_SetGroupDuringLoad(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{}, 4)

	_, srv := newStubBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/groups/1"):
			started <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
			if r.URL.Path == "/api/groups/1" {
				status(http.StatusOK, `{"id":1,"name":"Old"}`)(w, r)
				return
			}
			status(http.StatusOK, `[]`)(w, r)
		case r.URL.Path == "/api/groups/2":
			status(http.StatusOK, `{"id":2,"name":"New"}`)(w, r)
		default:
			status(http.StatusOK, `[]`)(w, r)
		}
	})
	env, nav := newEnv(t, srv.URL, "tok", GroupRoute(1))

	s := NewGroupDetailScreen(env, 1)
	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-started

	s.SetGroup(2)
	assert.Equal(t, int64(2), s.GroupID())
	assert.Equal(t, StateLoading, s.State())

	// The old load is cancelled and its result never lands.
	require.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, StateLoading, s.State())
	assert.Nil(t, s.Detail())
	assert.True(t, s.Feedback().Empty())
	assert.True(t, hasSession(t, env))
	assert.Equal(t, GroupRoute(1), nav.Current())

	require.NoError(t, s.Load(context.Background()))
	require.NotNil(t, s.Detail())
	assert.Equal(t, int64(2), s.Detail().Group.ID)
	assert.Equal(t, "New", s.Detail().Group.Name)
}

func TestJoin_ShortCodeIsLocal(t *testing.T) {
	sb, srv := newStubBackend(t, status(http.StatusOK, `{}`))
	env, nav := newEnv(t, srv.URL, "tok", RouteGroups)

	groups := NewGroupsScreen(env)
	err := groups.Join(context.Background(), "abc")
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))
	assert.Equal(t, "Invalid QR code format.", groups.ActionFeedback().Message)

	join := NewJoinScreen(env)
	join.Code = "https://cookie.test/join?code=abc"
	err = join.Submit(context.Background())
	assert.True(t, apiclient.IsKind(err, apiclient.KindValidation))

	assert.Empty(t, sb.requests())
	assert.Equal(t, RouteGroups, nav.Current())
}

func TestLocalValidation(t *testing.T) {
	sb, srv := newStubBackend(t, status(http.StatusOK, `{}`))
	env, _ := newEnv(t, srv.URL, "tok", RouteLogin)
	ctx := context.Background()

	login := NewLoginScreen(env)
	require.Error(t, login.Submit(ctx))
	assert.Contains(t, login.Feedback().Fields, "email")
	assert.Contains(t, login.Feedback().Fields, "password")

	reg := NewRegisterScreen(env)
	reg.Name, reg.Email, reg.Phone = "Ada", "ada@example.com", "555"
	reg.Password, reg.PasswordConfirmation = "password1", "password2"
	require.Error(t, reg.Submit(ctx))
	assert.Equal(t, "Passwords do not match.", reg.Feedback().Message)

	create := NewCreateGroupScreen(env)
	create.Name = strings.Repeat("x", MaxGroupNameLength+1)
	create.Description = strings.Repeat("d", MaxGroupDescriptionLength+1)
	require.Error(t, create.Submit(ctx))
	assert.Contains(t, create.Feedback().Fields, "name")
	assert.Contains(t, create.Feedback().Fields, "description")

	otp := NewOTPScreen(env)
	otp.OTP = "12a456"
	require.Error(t, otp.Submit(ctx))
	assert.Contains(t, otp.Feedback().Fields, "otp")

	reset := NewResetPasswordScreen(env, "ada@example.com")
	reset.Password, reset.PasswordConfirmation = "abcdefgh", "abcdefgi"
	require.Error(t, reset.Submit(ctx))
	assert.Contains(t, reset.Feedback().Fields, "password_confirmation")

	story := NewCreateStoryScreen(env, 3, []models.Member{{UserID: 1}})
	story.Content = "hi"
	story.SharedWith = []int64{2}
	require.Error(t, story.Submit(ctx))
	assert.Contains(t, story.Feedback().Fields, "shared_with")

	post := NewCreatePostScreen(env, 3)
	post.Content = "   "
	require.Error(t, post.Submit(ctx))

	assert.Empty(t, sb.requests())
}

func TestServerValidationFeedback(t *testing.T) {
	_, srv := newStubBackend(t, status(http.StatusUnprocessableEntity,
		`{"message":"The email has already been taken.","errors":{"email":["The email has already been taken."]}}`))
	env, nav := newEnv(t, srv.URL, "", RouteRegister)

	reg := NewRegisterScreen(env)
	reg.Name, reg.Email, reg.Phone = "Ada", "ada@example.com", "555"
	reg.Password, reg.PasswordConfirmation = "password1", "password1"
	require.Error(t, reg.Submit(context.Background()))

	fb := reg.Feedback()
	assert.Equal(t, "The email has already been taken.", fb.Message)
	assert.Equal(t, []string{"The email has already been taken."}, fb.Fields["email"])
	assert.Equal(t, RouteRegister, nav.Current())
}

// The remaining tests drive the real reference backend.

func TestFlow_RegisterVerifyAndUseGroups(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()
	env, nav := newEnv(t, backend.URL, "", RouteRegister)

	reg := NewRegisterScreen(env)
	reg.Name, reg.Email, reg.Phone = "Ada", "ada@example.com", "555"
	reg.Password, reg.PasswordConfirmation = "password123", "password123"
	require.NoError(t, reg.Submit(ctx))
	assert.Equal(t, RouteVerifyOTP, nav.Current())

	code, err := backend.Store.GetOTP(ctx, "ada@example.com", models.OTPAccount)
	require.NoError(t, err)
	otp := NewOTPScreen(env)
	otp.OTP = code.Code
	require.NoError(t, otp.Submit(ctx))
	assert.Equal(t, RouteProfile, nav.Current())

	profile := NewProfileScreen(env)
	require.NoError(t, profile.Load(ctx))
	assert.Equal(t, "Ada", profile.User().Name)
	assert.NotNil(t, profile.User().VerifiedAt)

	groups := NewGroupsScreen(env)
	require.NoError(t, groups.Load(ctx))
	assert.NotNil(t, groups.Groups())
	assert.Empty(t, groups.Groups())

	require.NoError(t, groups.Create(ctx, "Book club", "Monthly"))
	require.Len(t, groups.Groups(), 1)
	group := groups.Groups()[0]

	share := NewShareScreen(env, group.ID)
	require.NoError(t, share.Toggle(ctx))
	require.NotNil(t, share.Result())
	assert.True(t, bool(share.Result().Group.IsShared))
	assert.Contains(t, share.Result().SVG, "<svg")

	detail := NewGroupDetailScreen(env, group.ID)
	post := NewCreatePostScreen(env, group.ID)
	post.OnCreated = func(ctx context.Context) { _ = detail.Load(ctx) }
	post.Content = "hello group"
	require.NoError(t, post.Submit(ctx))
	assert.Empty(t, post.Content)

	require.Equal(t, StateLoaded, detail.State())
	d := detail.Detail()
	assert.Equal(t, "Book club", d.Group.Name)
	assert.Len(t, d.Members, 1)
	require.Len(t, d.Posts, 1)
	assert.Equal(t, "hello group", d.Posts[0].Content)
	assert.Empty(t, d.Stories)

	story := NewCreateStoryScreen(env, group.ID, d.Members)
	story.Content = "today"
	story.SharedWith = []int64{d.Members[0].UserID}
	require.NoError(t, story.Submit(ctx))
	require.NoError(t, detail.Load(ctx))
	assert.Len(t, detail.Detail().Stories, 1)

	require.NoError(t, profile.Logout(ctx))
	assert.Equal(t, RouteLogin, nav.Current())
	assert.False(t, hasSession(t, env))
}

func TestFlow_JoinFromQRPayload(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()

	ownerEnv, _ := newEnv(t, backend.URL, "", RouteLogin)
	signUpAndLogin(t, ownerEnv, "Ada", "ada@example.com")
	create := NewCreateGroupScreen(ownerEnv)
	create.Name = "Hikers"
	require.NoError(t, create.Submit(ctx))
	group := create.Created()
	require.NotNil(t, group)
	require.NoError(t, NewShareScreen(ownerEnv, group.ID).Toggle(ctx))

	guestEnv, guestNav := newEnv(t, backend.URL, "", RouteLogin)
	signUpAndLogin(t, guestEnv, "Bo", "bo@example.com")

	groups := NewGroupsScreen(guestEnv)
	require.NoError(t, groups.Join(ctx, servicetest.PublicURL+"/join?code="+group.ShareCode))
	assert.Equal(t, GroupRoute(group.ID), guestNav.Current())
	require.Len(t, groups.Groups(), 1)
	assert.Equal(t, "Hikers", groups.Groups()[0].Name)
}

func TestFlow_PasswordReset(t *testing.T) {
	backend := servicetest.New(t)
	ctx := context.Background()

	env, nav := newEnv(t, backend.URL, "", RouteLogin)
	signUpAndLogin(t, env, "Ada", "ada@example.com")
	require.NoError(t, env.API.Logout(ctx))

	forget := NewForgetPasswordScreen(env)
	forget.Email = "ada@example.com"
	require.NoError(t, forget.Submit(ctx))
	assert.Equal(t, WithEmail(RouteVerifyForgetPassword, "ada@example.com"), nav.Current())

	code, err := backend.Store.GetOTP(ctx, "ada@example.com", models.OTPPasswordReset)
	require.NoError(t, err)

	verify := NewVerifyForgetPasswordScreen(env, "ada@example.com")
	verify.OTP = code.Code
	require.NoError(t, verify.Submit(ctx))
	assert.Equal(t, WithEmail(RouteResetPassword, "ada@example.com"), nav.Current())

	reset := NewResetPasswordScreen(env, "ada@example.com")
	reset.Password, reset.PasswordConfirmation = "brandnew123", "brandnew123"
	require.NoError(t, reset.Submit(ctx))
	assert.Equal(t, RouteLogin, nav.Current())

	login := NewLoginScreen(env)
	login.Email, login.Password = "ada@example.com", "brandnew123"
	require.NoError(t, login.Submit(ctx))
	assert.Equal(t, RouteProfile, nav.Current())
}

func signUpAndLogin(t *testing.T, env *Env, name, email string) {
	t.Helper()
	ctx := context.Background()

	reg := NewRegisterScreen(env)
	reg.Name, reg.Email, reg.Phone = name, email, "555"
	reg.Password, reg.PasswordConfirmation = "password123", "password123"
	require.NoError(t, reg.Submit(ctx))

	login := NewLoginScreen(env)
	login.Email, login.Password = email, "password123"
	require.NoError(t, login.Submit(ctx))
	require.True(t, hasSession(t, env))
}
