package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/dmitrijs2005/membercli/internal/client/api"
	"github.com/dmitrijs2005/membercli/internal/client/models"
	"github.com/dmitrijs2005/membercli/internal/client/session"
)

func stubInputs(t *testing.T, username, password string, rememberMe bool) func() {
	t.Helper()
	origST, origGP, origYN := getSimpleText, getPassword, getYesNo
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ io.Writer) (string, error) { return password, nil }
	getYesNo = func(_ *bufio.Reader, _ string, _ io.Writer) (bool, error) { return rememberMe, nil }
	return func() {
		getSimpleText = origST
		getPassword = origGP
		getYesNo = origYN
	}
}

// fakeStore реализует SessionStore для тестов обработчиков команд.
type fakeStore struct {
	signInOK    bool
	signInErr   error
	lastCreds   session.Credentials
	signOutSeen bool
	checkOK     bool
	user        *models.User
}

func (f *fakeStore) SignIn(_ context.Context, creds session.Credentials) (bool, error) {
	f.lastCreds = creds
	return f.signInOK, f.signInErr
}
func (f *fakeStore) SignOut(context.Context) bool {
	f.signOutSeen = true
	f.user = nil
	return true
}
func (f *fakeStore) CheckSession(context.Context) bool { return f.checkOK }
func (f *fakeStore) IsAuthenticated() bool             { return f.user != nil }
func (f *fakeStore) CurrentUser() *models.User         { return f.user }
func (f *fakeStore) DisplayName() string               { return f.user.DisplayName() }
func (f *fakeStore) Close(context.Context) error       { return nil }

// fakeRegisterAPI реализует api.Client; нужен только Register.
type fakeRegisterAPI struct {
	user  string
	email string
	pass  string
	err   error
}

func (f *fakeRegisterAPI) SignIn(context.Context, string, string) (*api.SignInResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRegisterAPI) SignOut(context.Context) error { return nil }
func (f *fakeRegisterAPI) CheckSignIn(context.Context) (*api.CheckResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeRegisterAPI) Register(_ context.Context, username, email, password string) error {
	f.user, f.email, f.pass = username, email, password
	return f.err
}
func (f *fakeRegisterAPI) Close() error { return nil }

func TestLogin_PassesCredentialsToStore(t *testing.T) {
	restore := stubInputs(t, "alice", "secret", true)
	defer restore()

	f := &fakeStore{signInOK: true}
	a := &App{store: f}

	if err := a.Login(context.Background()); err != nil {
		t.Fatalf("Login err: %v", err)
	}
	if f.lastCreds.Username != "alice" || f.lastCreds.Password != "secret" {
		t.Fatalf("credentials mismatch: %+v", f.lastCreds)
	}
	if !f.lastCreds.RememberMe {
		t.Fatalf("remember-me flag lost")
	}
}

func TestLogin_RejectedCredentials_NoError(t *testing.T) {
	restore := stubInputs(t, "alice", "wrong", false)
	defer restore()

	f := &fakeStore{signInOK: false}
	a := &App{store: f}

	if err := a.Login(context.Background()); err != nil {
		t.Fatalf("rejected login must not error: %v", err)
	}
}

func TestLogin_TransportErrorPropagates(t *testing.T) {
	restore := stubInputs(t, "alice", "pw", false)
	defer restore()

	f := &fakeStore{signInErr: errors.New("decode failure")}
	a := &App{store: f}

	if err := a.Login(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRegister_Success(t *testing.T) {
	origST, origGP := getSimpleText, getPassword
	prompts := []string{"alice", "alice@example.org"}
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		v := prompts[0]
		prompts = prompts[1:]
		return v, nil
	}
	getPassword = func(_ io.Writer) (string, error) { return "secret", nil }
	defer func() {
		getSimpleText = origST
		getPassword = origGP
	}()

	f := &fakeRegisterAPI{}
	a := &App{store: &fakeStore{}, api: f}

	if err := a.Register(context.Background()); err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if f.user != "alice" || f.email != "alice@example.org" || f.pass != "secret" {
		t.Fatalf("register args mismatch: %+v", f)
	}
}

func TestLogout_Delegates(t *testing.T) {
	f := &fakeStore{user: &models.User{Username: "alice"}}
	a := &App{store: f}

	if err := a.Logout(context.Background()); err != nil {
		t.Fatalf("Logout err: %v", err)
	}
	if !f.signOutSeen {
		t.Fatal("SignOut not called")
	}
}

func TestWhoAmI_NotSignedIn(t *testing.T) {
	a := &App{store: &fakeStore{}}
	if err := a.WhoAmI(context.Background()); err != nil {
		t.Fatalf("WhoAmI err: %v", err)
	}
}
