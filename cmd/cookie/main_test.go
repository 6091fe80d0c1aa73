package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/mmynk/cookie/internal/service/servicetest"
)

// user runs CLI commands against one session file.
type user struct {
	t       *testing.T
	session string
}

func setup(t *testing.T) *servicetest.Backend {
	t.Helper()
	backend := servicetest.New(t)
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("COOKIE_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("COOKIE_API_URL", backend.URL)
	t.Setenv("COOKIE_PASSWORD", "")
	t.Setenv("LOG_LEVEL", "")
	return backend
}

func newUser(t *testing.T, name string) *user {
	return &user{t: t, session: filepath.Join(t.TempDir(), name+".db")}
}

func (u *user) run(args ...string) (stdout, stderr string, code int) {
	u.t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"-session", u.session}, args...), &out, &errOut)
	return out.String(), errOut.String(), code
}

// must runs a command that is expected to succeed.
func (u *user) must(args ...string) string {
	u.t.Helper()
	out, errOut, code := u.run(args...)
	if code != 0 {
		u.t.Fatalf("%v: exit %d\nstdout: %s\nstderr: %s", args, code, out, errOut)
	}
	return out
}

func (u *user) register(name, email string) {
	u.t.Helper()
	u.must("register", "-name", name, "-email", email, "-phone", "555-0100", "-password", "password123")
}

// valueAfter returns the token following prefix in out.
func valueAfter(t *testing.T, out, prefix string) string {
	t.Helper()
	i := strings.Index(out, prefix)
	if i < 0 {
		t.Fatalf("expected %q in output %q", prefix, out)
	}
	fields := strings.Fields(out[i+len(prefix):])
	if len(fields) == 0 {
		t.Fatalf("nothing after %q in output %q", prefix, out)
	}
	return fields[0]
}

func idAfter(t *testing.T, out, prefix string) int64 {
	t.Helper()
	v := valueAfter(t, out, prefix)
	id, err := strconv.ParseInt(strings.TrimSuffix(v, ")"), 10, 64)
	if err != nil {
		t.Fatalf("invalid ID %q: %v", v, err)
	}
	return id
}

func TestHelpAndUnknownCommand(t *testing.T) {
	setup(t)
	u := newUser(t, "nobody")

	out, _, code := u.run("help")
	if code != 0 || !strings.Contains(out, "create-group") {
		t.Errorf("expected usage with exit 0, got %d: %q", code, out)
	}

	_, errOut, code := u.run("bake")
	if code != 2 || !strings.Contains(errOut, `unknown command "bake"`) {
		t.Errorf("expected exit 2 for unknown command, got %d: %q", code, errOut)
	}
}

func TestRegisterAndWhoami(t *testing.T) {
	setup(t)
	alice := newUser(t, "alice")

	out := alice.must("register", "-name", "Alice", "-email", "alice@example.com", "-phone", "555-0100", "-password", "password123")
	if !strings.Contains(out, "verify-otp") {
		t.Errorf("expected OTP hint after register, got %q", out)
	}

	out = alice.must("whoami")
	if !strings.Contains(out, "Alice <alice@example.com>") {
		t.Errorf("unexpected whoami output %q", out)
	}
}

func TestRegister_ValidationFeedback(t *testing.T) {
	setup(t)
	u := newUser(t, "carol")

	_, errOut, code := u.run("register", "-name", "Carol", "-email", "carol@example.com", "-password", "password123")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "Phone is required.") {
		t.Errorf("expected phone feedback, got %q", errOut)
	}
}

func TestGroupLifecycle(t *testing.T) {
	setup(t)
	alice := newUser(t, "alice")
	bob := newUser(t, "bob")
	alice.register("Alice", "alice@example.com")
	bob.register("Bob", "bob@example.com")
	bobID := idAfter(t, bob.must("whoami"), "(id ")

	groupID := idAfter(t, alice.must("create-group", "-name", "Book club", "-description", "Monthly reads"), "Group ID: ")
	gid := strconv.FormatInt(groupID, 10)

	out := alice.must("groups")
	if !strings.Contains(out, "Book club") {
		t.Errorf("expected group in list, got %q", out)
	}

	qrFile := filepath.Join(t.TempDir(), "qr.svg")
	out = alice.must("share", "-id", gid, "-out", qrFile)
	code := valueAfter(t, out, "Code: ")
	svg, err := os.ReadFile(qrFile)
	if err != nil {
		t.Fatalf("failed to read QR file: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("expected SVG in %s", qrFile)
	}

	// Joining with the scanned link, not the bare code.
	out = bob.must("join", servicetest.PublicURL+"/join?code="+code)
	if got := idAfter(t, out, "Group ID: "); got != groupID {
		t.Errorf("expected to join group %d, got %d", groupID, got)
	}

	bob.must("post", "-group", gid, "-content", "First!")
	alice.must("story", "-group", gid, "-content", "For Bob only", "-to", strconv.FormatInt(bobID, 10))

	out = bob.must("group", "-id", gid)
	for _, want := range []string{"Book club (id " + gid + ")", "Members (2)", "Bob: First!", "Alice: For Bob only"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in group output:\n%s", want, out)
		}
	}

	_, errOut, exit := alice.run("story", "-group", gid, "-content", "Nobody", "-to", "9999")
	if exit != 1 || !strings.Contains(errOut, "not a member") {
		t.Errorf("expected member feedback, got %d: %q", exit, errOut)
	}

	// Only the creator can delete; for anyone else the group does not exist.
	if _, _, exit := bob.run("delete-group", "-id", gid); exit != 1 {
		t.Errorf("expected bob's delete to fail, got exit %d", exit)
	}
	alice.must("delete-group", "-id", gid)
	out = alice.must("groups")
	if !strings.Contains(out, "No groups yet.") {
		t.Errorf("expected empty list after delete, got %q", out)
	}
}

func TestJoin_InvalidCodeStaysLocal(t *testing.T) {
	setup(t)
	u := newUser(t, "dave")

	_, errOut, code := u.run("join", "abc")
	if code != 1 || !strings.Contains(errOut, "Invalid QR code format.") {
		t.Errorf("expected local validation, got %d: %q", code, errOut)
	}
}

func TestLogout_ThenSignedOutHint(t *testing.T) {
	setup(t)
	alice := newUser(t, "alice")
	alice.register("Alice", "alice@example.com")

	if out := alice.must("logout"); !strings.Contains(out, "Logged out.") {
		t.Errorf("unexpected logout output %q", out)
	}

	_, errOut, code := alice.run("groups")
	if code != 1 {
		t.Fatalf("expected exit 1 without a session, got %d", code)
	}
	if !strings.Contains(errOut, "Please log in") || !strings.Contains(errOut, "cookie login") {
		t.Errorf("expected login hint, got %q", errOut)
	}

	alice.must("login", "-email", "alice@example.com", "-password", "password123")
	alice.must("groups")
}

func TestGroup_RequiresID(t *testing.T) {
	setup(t)
	u := newUser(t, "erin")

	_, errOut, code := u.run("group")
	if code != 1 || !strings.Contains(errOut, "group ID is required") {
		t.Errorf("expected missing ID error, got %d: %q", code, errOut)
	}
}
