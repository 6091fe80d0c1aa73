package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/mmynk/cookie/internal/models"
	"github.com/mmynk/cookie/internal/screens"
)

// errFailed marks an action whose feedback has already been printed.
var errFailed = errors.New("action failed")

type command struct {
	name    string
	summary string
	// route is the screen the command stands in for.
	route string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "sign in", screens.RouteLogin, cmdLogin},
	{"register", "create an account", screens.RouteRegister, cmdRegister},
	{"verify-otp", "confirm the account code", screens.RouteVerifyOTP, cmdVerifyOTP},
	{"whoami", "show the signed-in user", screens.RouteProfile, cmdWhoami},
	{"logout", "sign out", screens.RouteProfile, cmdLogout},
	{"forgot-password", "email a password reset code", screens.RouteForgetPassword, cmdForgotPassword},
	{"verify-forgot-password", "check a password reset code", screens.RouteVerifyForgetPassword, cmdVerifyForgotPassword},
	{"reset-password", "set a new password", screens.RouteResetPassword, cmdResetPassword},
	{"groups", "list your groups", screens.RouteGroups, cmdGroups},
	{"create-group", "create a group", screens.RouteCreateGroup, cmdCreateGroup},
	{"delete-group", "delete a group you created", screens.RouteGroups, cmdDeleteGroup},
	{"join", "join a group by share code or QR link", screens.RouteJoin, cmdJoin},
	{"group", "show a group with members, stories and posts", screens.RouteGroups, cmdGroup},
	{"share", "toggle sharing of a group", screens.RouteGroups, cmdShare},
	{"qr", "write a group's QR code as SVG", screens.RouteGroups, cmdQR},
	{"post", "post to a group", screens.RouteGroups, cmdPost},
	{"story", "post a story to a group", screens.RouteGroups, cmdStory},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// report prints the outcome of a screen action. On failure the feedback goes
// to stderr, with a hint when the session was dropped.
func (a *app) report(start string, fb screens.Feedback, err error) error {
	if err == nil {
		if fb.Message != "" {
			fmt.Fprintln(a.stdout, fb.Message)
		}
		return nil
	}
	printFeedback(a.stderr, fb)
	if start != screens.RouteLogin && a.nav.Current() == screens.RouteLogin {
		fmt.Fprintln(a.stderr, "Run 'cookie login' to sign in.")
	}
	return errFailed
}

func printFeedback(w io.Writer, fb screens.Feedback) {
	if fb.Message != "" {
		fmt.Fprintln(w, fb.Message)
	}
	for _, field := range slices.Sorted(maps.Keys(fb.Fields)) {
		for _, msg := range fb.Fields[field] {
			if msg != fb.Message {
				fmt.Fprintf(w, "  %s: %s\n", field, msg)
			}
		}
	}
}

// submit runs a form screen and reports it.
func (a *app) submit(ctx context.Context, s interface {
	Submit(context.Context) error
	Feedback() screens.Feedback
}) error {
	start := a.nav.Current()
	err := s.Submit(ctx)
	return a.report(start, s.Feedback(), err)
}

// load runs a view screen and reports only failures.
func (a *app) load(ctx context.Context, s interface {
	Load(context.Context) error
	Feedback() screens.Feedback
}) error {
	start := a.nav.Current()
	err := s.Load(ctx)
	return a.report(start, s.Feedback(), err)
}

func groupIDFlag(fs *flag.FlagSet, name string) *int64 {
	return fs.Int64(name, 0, "group ID")
}

func needGroup(id int64) error {
	if id <= 0 {
		return errors.New("a group ID is required (-id)")
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	s := screens.NewLoginScreen(a.env)
	fs := a.flags("login")
	fs.StringVar(&s.Email, "email", "", "account email")
	fs.StringVar(&s.Password, "password", os.Getenv("COOKIE_PASSWORD"), "password (default $COOKIE_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.submit(ctx, s)
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	s := screens.NewRegisterScreen(a.env)
	fs := a.flags("register")
	fs.StringVar(&s.Name, "name", "", "display name")
	fs.StringVar(&s.Email, "email", "", "email")
	fs.StringVar(&s.Phone, "phone", "", "phone number")
	fs.StringVar(&s.Password, "password", os.Getenv("COOKIE_PASSWORD"), "password (default $COOKIE_PASSWORD)")
	confirm := fs.String("confirm", "", "password confirmation (default: same as -password)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s.PasswordConfirmation = *confirm
	if s.PasswordConfirmation == "" {
		s.PasswordConfirmation = s.Password
	}
	if err := a.submit(ctx, s); err != nil {
		return err
	}
	if a.nav.Current() == screens.RouteVerifyOTP {
		fmt.Fprintln(a.stdout, "Check your email, then run 'cookie verify-otp -otp CODE'.")
	}
	return nil
}

func cmdVerifyOTP(ctx context.Context, a *app, args []string) error {
	s := screens.NewOTPScreen(a.env)
	fs := a.flags("verify-otp")
	fs.StringVar(&s.OTP, "otp", "", "6-digit code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.submit(ctx, s)
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	if err := a.flags("whoami").Parse(args); err != nil {
		return err
	}
	s := screens.NewProfileScreen(a.env)
	if err := a.load(ctx, s); err != nil {
		return err
	}
	u := s.User()
	fmt.Fprintf(a.stdout, "%s <%s> (id %d)\n", u.Name, u.Email, u.ID)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.flags("logout").Parse(args); err != nil {
		return err
	}
	if err := screens.NewProfileScreen(a.env).Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out.")
	return nil
}

func cmdForgotPassword(ctx context.Context, a *app, args []string) error {
	s := screens.NewForgetPasswordScreen(a.env)
	fs := a.flags("forgot-password")
	fs.StringVar(&s.Email, "email", "", "account email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.submit(ctx, s)
}

func cmdVerifyForgotPassword(ctx context.Context, a *app, args []string) error {
	s := screens.NewVerifyForgetPasswordScreen(a.env, "")
	fs := a.flags("verify-forgot-password")
	fs.StringVar(&s.Email, "email", "", "account email")
	fs.StringVar(&s.OTP, "otp", "", "6-digit code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.submit(ctx, s)
}

func cmdResetPassword(ctx context.Context, a *app, args []string) error {
	s := screens.NewResetPasswordScreen(a.env, "")
	fs := a.flags("reset-password")
	fs.StringVar(&s.Email, "email", "", "account email")
	fs.StringVar(&s.Password, "password", os.Getenv("COOKIE_PASSWORD"), "new password (default $COOKIE_PASSWORD)")
	confirm := fs.String("confirm", "", "password confirmation (default: same as -password)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s.PasswordConfirmation = *confirm
	if s.PasswordConfirmation == "" {
		s.PasswordConfirmation = s.Password
	}
	return a.submit(ctx, s)
}

func cmdGroups(ctx context.Context, a *app, args []string) error {
	if err := a.flags("groups").Parse(args); err != nil {
		return err
	}
	s := screens.NewGroupsScreen(a.env)
	if err := a.load(ctx, s); err != nil {
		return err
	}
	groups := s.Groups()
	if len(groups) == 0 {
		fmt.Fprintln(a.stdout, "No groups yet.")
		return nil
	}
	for _, g := range groups {
		fmt.Fprintf(a.stdout, "%d\t%s\t%s%s\n", g.ID, g.Name, g.CreatorName(), sharedMark(g))
	}
	return nil
}

func sharedMark(g models.Group) string {
	if g.IsShared {
		return "\tshared " + g.ShareCode
	}
	return ""
}

func cmdCreateGroup(ctx context.Context, a *app, args []string) error {
	s := screens.NewCreateGroupScreen(a.env)
	fs := a.flags("create-group")
	fs.StringVar(&s.Name, "name", "", "group name")
	fs.StringVar(&s.Description, "description", "", "optional description")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.submit(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Group ID: %d\n", s.Created().ID)
	return nil
}

func cmdDeleteGroup(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete-group")
	id := groupIDFlag(fs, "id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needGroup(*id); err != nil {
		return err
	}
	s := screens.NewGroupsScreen(a.env)
	start := a.nav.Current()
	err := s.Delete(ctx, *id)
	fb := s.ActionFeedback()
	if err != nil && s.State() == screens.StateErrored {
		// The delete went through; the refresh after it did not.
		fb = s.Feedback()
	}
	return a.report(start, fb, err)
}

func cmdJoin(ctx context.Context, a *app, args []string) error {
	s := screens.NewJoinScreen(a.env)
	fs := a.flags("join")
	fs.StringVar(&s.Code, "code", "", "share code or scanned QR link")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if s.Code == "" && fs.NArg() > 0 {
		s.Code = fs.Arg(0)
	}
	if err := a.submit(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Group ID: %d\n", s.GroupID())
	return nil
}

func cmdGroup(ctx context.Context, a *app, args []string) error {
	fs := a.flags("group")
	id := groupIDFlag(fs, "id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needGroup(*id); err != nil {
		return err
	}
	s := screens.NewGroupDetailScreen(a.env, *id)
	if err := a.load(ctx, s); err != nil {
		return err
	}
	printDetail(a.stdout, s.Detail())
	return nil
}

func printDetail(w io.Writer, d *screens.GroupDetail) {
	g := d.Group
	fmt.Fprintf(w, "%s (id %d)\n", g.Name, g.ID)
	if g.Description != "" {
		fmt.Fprintln(w, g.Description)
	}
	fmt.Fprintf(w, "Created by %s\n", g.CreatorName())
	if g.IsShared {
		fmt.Fprintf(w, "Shared, code %s\n", g.ShareCode)
	}

	fmt.Fprintf(w, "\nMembers (%d)\n", len(d.Members))
	for _, m := range d.Members {
		fmt.Fprintf(w, "  %d\t%s\n", m.UserID, m.Label())
	}
	fmt.Fprintf(w, "\nStories (%d)\n", len(d.Stories))
	for _, st := range d.Stories {
		fmt.Fprintf(w, "  %s: %s\n", authorName(st.User), st.Content)
	}
	fmt.Fprintf(w, "\nPosts (%d)\n", len(d.Posts))
	for _, p := range d.Posts {
		fmt.Fprintf(w, "  %s: %s\n", authorName(p.User), p.Content)
	}
}

func authorName(u *models.UserRef) string {
	if u == nil || u.Name == "" {
		return "Unknown"
	}
	return u.Name
}

func cmdShare(ctx context.Context, a *app, args []string) error {
	fs := a.flags("share")
	id := groupIDFlag(fs, "id")
	out := fs.String("out", "", "write the QR code SVG here when sharing is on")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needGroup(*id); err != nil {
		return err
	}
	s := screens.NewShareScreen(a.env, *id)
	start := a.nav.Current()
	err := s.Toggle(ctx)
	if err := a.report(start, s.Feedback(), err); err != nil {
		return err
	}
	res := s.Result()
	if !res.Group.IsShared {
		fmt.Fprintln(a.stdout, "Sharing is off.")
		return nil
	}
	fmt.Fprintf(a.stdout, "Sharing is on. Code: %s\n", res.Group.ShareCode)
	if *out != "" {
		return writeSVG(a, *out, res.SVG)
	}
	return nil
}

func cmdQR(ctx context.Context, a *app, args []string) error {
	fs := a.flags("qr")
	id := groupIDFlag(fs, "id")
	out := fs.String("out", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needGroup(*id); err != nil {
		return err
	}
	s := screens.NewQRScreen(a.env, *id)
	if err := a.load(ctx, s); err != nil {
		return err
	}
	if *out == "" {
		fmt.Fprintln(a.stdout, s.SVG())
		return nil
	}
	return writeSVG(a, *out, s.SVG())
}

func writeSVG(a *app, path, svg string) error {
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return fmt.Errorf("failed to write QR code: %w", err)
	}
	fmt.Fprintf(a.stdout, "QR code written to %s\n", path)
	return nil
}

func cmdPost(ctx context.Context, a *app, args []string) error {
	s := screens.NewCreatePostScreen(a.env, 0)
	fs := a.flags("post")
	fs.Int64Var(&s.GroupID, "group", 0, "group ID")
	fs.StringVar(&s.Content, "content", "", "post text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needGroup(s.GroupID); err != nil {
		return err
	}
	return a.submit(ctx, s)
}

func cmdStory(ctx context.Context, a *app, args []string) error {
	fs := a.flags("story")
	id := fs.Int64("group", 0, "group ID")
	content := fs.String("content", "", "story text")
	to := fs.String("to", "", "comma-separated member IDs (default: everyone)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needGroup(*id); err != nil {
		return err
	}
	sharedWith, err := parseIDs(*to)
	if err != nil {
		return err
	}

	// Recipients are checked against the current member list.
	detail := screens.NewGroupDetailScreen(a.env, *id)
	if err := a.load(ctx, detail); err != nil {
		return err
	}
	s := screens.NewCreateStoryScreen(a.env, *id, detail.Detail().Members)
	s.Content = *content
	s.SharedWith = sharedWith
	return a.submit(ctx, s)
}

func parseIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid member ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
