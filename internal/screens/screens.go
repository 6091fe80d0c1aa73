// Package screens holds the Cookie view-models.
//
// Each screen drives one or more API calls through a Loader, renders a
// Feedback for the user, and routes through a Navigator. Errors are caught in
// one place, Env.Handle: an unauthorized response clears the session and
// replaces the current route with the login screen.
package screens

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/cookie/internal/apiclient"
	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/session"
)

// API is the backend surface the screens use. *apiclient.Client implements it.
type API interface {
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Register(ctx context.Context, reg apiclient.Registration) (*models.AuthResult, error)
	Logout(ctx context.Context) error
	GetUser(ctx context.Context) (*models.User, error)

	GetGroups(ctx context.Context) ([]models.Group, error)
	CreateGroup(ctx context.Context, name, description string) (*models.Group, error)
	DeleteGroup(ctx context.Context, groupID int64) (string, error)
	JoinGroup(ctx context.Context, code string) (*models.JoinResult, error)
	GetGroupDetails(ctx context.Context, groupID int64) (*models.Group, error)
	GetGroupMembers(ctx context.Context, groupID int64) ([]models.Member, error)
	ToggleGroupSharing(ctx context.Context, groupID int64) (*models.Group, error)
	GetGroupQR(ctx context.Context, groupID int64) (string, error)

	GetGroupPosts(ctx context.Context, groupID int64) ([]models.Post, error)
	GetGroupStories(ctx context.Context, groupID int64) ([]models.Story, error)
	CreatePost(ctx context.Context, groupID int64, content string) (*models.Post, error)
	CreateStory(ctx context.Context, groupID int64, content string, sharedWith []int64) (*models.Story, error)

	RequestForgetPassword(ctx context.Context, email string) (string, error)
	VerifyForgetPassword(ctx context.Context, email, otp string) (string, error)
	VerifyOTP(ctx context.Context, otp string) (string, error)
	ResetPassword(ctx context.Context, email, password string) (string, error)
}

var _ API = (*apiclient.Client)(nil)

var errMissingToken = errors.New("missing token")

// missingToken is the failure of a screen that needs a session when none is
// stored. It is unauthorized, so Env.Handle routes to login.
func missingToken() *apiclient.Error {
	return &apiclient.Error{
		Kind:     apiclient.KindUnauthorized,
		Endpoint: "session",
		Message:  "Missing token",
		Err:      errMissingToken,
	}
}

// IsMissingToken reports whether err comes from a screen run without a session.
func IsMissingToken(err error) bool {
	return errors.Is(err, errMissingToken)
}

// Env is what every screen shares: the API, the session and the navigator.
type Env struct {
	API      API
	Sessions session.Store
	Nav      Navigator
	Logger   *slog.Logger
}

// NewEnv builds an Env around client and its session store.
func NewEnv(client *apiclient.Client, nav Navigator, logger *slog.Logger) *Env {
	if logger == nil {
		logger = slog.Default()
	}
	return &Env{
		API:      client,
		Sessions: client.Sessions(),
		Nav:      nav,
		Logger:   logger,
	}
}

// Handle is the single top-level catch for screen actions. It logs err,
// clears the session and routes to login when err is unauthorized, and
// returns what to show the user.
func (e *Env) Handle(ctx context.Context, err error) Feedback {
	if err == nil {
		return Feedback{}
	}
	fb := Describe(err)
	if !apiclient.IsUnauthorized(err) {
		e.Logger.Debug("Screen action failed", "error", err)
		return fb
	}

	e.Logger.Info("Session rejected, signing out", "error", err)
	// The action's context may already be cancelled; the session must still go.
	if cerr := e.Sessions.Clear(context.WithoutCancel(ctx)); cerr != nil {
		e.Logger.Error("Failed to clear session", "error", cerr)
	}
	e.Nav.Replace(RouteLogin)
	return fb
}

// requireSession fails with a missing-token error when no session is stored.
func (e *Env) requireSession(ctx context.Context) (models.Session, error) {
	s, ok, err := e.Sessions.Get(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, missingToken()
	}
	return s, nil
}

// form is the submit machinery shared by form screens: a busy-guarded loader
// holding the success message and the feedback of the last submit.
type form struct {
	env      *Env
	loader   Loader[string]
	feedback Feedback
}

// Feedback returns the outcome of the last submit.
func (f *form) Feedback() Feedback {
	return f.feedback
}

// Busy reports whether a submit is in flight.
func (f *form) Busy() bool {
	return f.loader.Busy()
}

// State returns the state of the last submit.
func (f *form) State() State {
	return f.loader.State()
}

// submit runs the local checks, then fn. Failures go through Env.Handle.
func (f *form) submit(ctx context.Context, check func(*validation), fn func(context.Context) (string, error)) error {
	if f.loader.Busy() {
		return ErrBusy
	}
	if check != nil {
		v := newValidation()
		check(v)
		if err := v.err(); err != nil {
			f.feedback = Describe(err)
			return err
		}
	}

	err := f.loader.Run(ctx, fn)
	switch {
	case errors.Is(err, ErrBusy), errors.Is(err, ErrSuperseded):
		return err
	case err != nil:
		f.feedback = f.env.Handle(ctx, err)
		return err
	}
	msg, _ := f.loader.Data()
	f.feedback = Feedback{Message: msg}
	return nil
}

// view is the load machinery shared by data screens.
type view[T any] struct {
	env      *Env
	loader   Loader[T]
	feedback Feedback
}

// Feedback returns the outcome of the last load.
func (v *view[T]) Feedback() Feedback {
	return v.feedback
}

func (v *view[T]) State() State {
	return v.loader.State()
}

// Busy reports whether a load is in flight.
func (v *view[T]) Busy() bool {
	return v.loader.Busy()
}

func (v *view[T]) load(ctx context.Context, fn func(context.Context) (T, error)) error {
	err := v.loader.Run(ctx, fn)
	if errors.Is(err, ErrBusy) || errors.Is(err, ErrSuperseded) {
		return err
	}
	v.feedback = v.env.Handle(ctx, err)
	return err
}
