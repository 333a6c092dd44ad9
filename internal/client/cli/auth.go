package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/membercli/internal/client/session"
	"github.com/dmitrijs2005/membercli/internal/common"
)

// getSimpleText, getPassword and getYesNo are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getYesNo = GetYesNo

// Login prompts the user for credentials and a remember-me choice, then
// tries to sign in through the session store.
//
// A rejected sign-in (wrong credentials) is reported to the user and
// returns nil; only transport failures are returned as errors.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	rememberMe, err := getYesNo(a.reader, "Stay signed in for 30 days?", os.Stdout)
	if err != nil {
		return err
	}

	ok, err := a.store.SignIn(ctx, session.Credentials{
		Username:   userName,
		Password:   password,
		RememberMe: rememberMe,
	})
	if err != nil {
		if errors.Is(err, common.ErrUnavailable) {
			log.Printf("Server unavailable: %s", err.Error())
			return nil
		}
		return err
	}

	if !ok {
		log.Printf("Login unsuccessfull: invalid username or password")
		return nil
	}

	log.Printf("Login successfull")
	return nil
}

// Register prompts for a username, email and password and creates a new
// account. The user still has to log in afterwards.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", os.Stdout)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	// Registration is not session state, so the call bypasses the store
	// and goes to the API client directly.
	if err := a.api.Register(ctx, userName, email, password); err != nil {
		return err
	}

	fmt.Println("Success!")
	return nil
}

// Logout signs out through the store. It never fails: the store guarantees
// a clean local state whatever the backend says.
func (a *App) Logout(ctx context.Context) error {
	a.store.SignOut(ctx)
	return nil
}

// Check revalidates the session against the backend.
func (a *App) Check(ctx context.Context) error {
	if a.store.CheckSession(ctx) {
		fmt.Println("Session is valid")
	} else {
		fmt.Println("Not signed in")
	}
	return nil
}

// WhoAmI prints the cached user record.
func (a *App) WhoAmI(ctx context.Context) error {
	user := a.store.CurrentUser()
	if user == nil {
		fmt.Println("Not signed in")
		return nil
	}
	fmt.Printf("%s (%s) <%s>\n", a.store.DisplayName(), user.Username, user.Email)
	if user.Level != "" {
		fmt.Printf("level: %s\n", user.Level)
	}
	if user.LastLogin != nil {
		fmt.Printf("last login: %s\n", user.LastLogin.Format("2006-01-02 15:04"))
	}
	return nil
}
