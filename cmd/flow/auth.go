package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"flowfinance/internal/core"
	"flowfinance/internal/session"
)

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stdout)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	username := fs.String("u", "", "username")
	passwordFlag := fs.String("p", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	creds := core.Credentials{Username: *username, Password: *passwordFlag}
	var err error
	if creds.Username == "" {
		if creds.Username, err = a.prompt("Username: "); err != nil {
			return err
		}
	}
	if creds.Password == "" {
		if creds.Password, err = a.password("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	if err := a.session.Login(ctx, creds); err != nil {
		return err
	}
	user, _ := a.session.User()
	fmt.Fprintf(a.stdout, "Logged in as %s.\n", user.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := a.flagSet("register")
	email := fs.String("email", "", "email address")
	username := fs.String("u", "", "username")
	passwordFlag := fs.String("p", "", "password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reg := core.Registration{Email: *email, Username: *username, Password: *passwordFlag}
	var err error
	if reg.Email == "" {
		if reg.Email, err = a.prompt("Email: "); err != nil {
			return err
		}
	}
	if reg.Username == "" {
		if reg.Username, err = a.prompt("Username: "); err != nil {
			return err
		}
	}
	if reg.Password == "" {
		if reg.Password, err = a.password("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
	}

	err = a.session.Register(ctx, reg)
	if errors.Is(err, session.ErrRegisteredNotLoggedIn) {
		fmt.Fprintf(a.stdout, "Account %s created, but logging in failed. Run `flow login`.\n", reg.Username)
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Account %s created and logged in.\n", reg.Username)
	return nil
}

func (a *app) whoami() error {
	user, ok := a.session.User()
	if !ok {
		return session.ErrNotAuthenticated
	}
	fmt.Fprintln(a.stdout, renderUser(user))
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: profile update|delete", errUsage)
	}
	switch args[0] {
	case "update":
		return a.profileUpdate(ctx, args[1:])
	case "delete":
		return a.profileDelete(ctx, args[1:])
	default:
		return fmt.Errorf("%w: unknown profile command %q", errUsage, args[0])
	}
}

func (a *app) profileUpdate(ctx context.Context, args []string) error {
	fs := a.flagSet("profile update")
	email := fs.String("email", "", "new email address")
	username := fs.String("u", "", "new username")
	changePassword := fs.Bool("p", false, "prompt for a new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var patch core.UserPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "email":
			patch.Email = email
		case "u":
			patch.Username = username
		}
	})
	if *changePassword {
		pw, err := a.password("New password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if pw == "" {
			return core.ErrEmptyPassword
		}
		patch.Password = &pw
	}
	if patch.Email == nil && patch.Username == nil && patch.Password == nil {
		return fmt.Errorf("%w: nothing to update", errUsage)
	}

	user, err := a.session.UpdateProfile(ctx, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Profile updated for %s. Log in again to continue.\n", user.Username)
	return nil
}

func (a *app) profileDelete(ctx context.Context, args []string) error {
	fs := a.flagSet("profile delete")
	confirmation := fs.String("confirm", "", "confirmation text, prompted when omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text := *confirmation
	if text == "" {
		fmt.Fprintf(a.stdout, "This permanently deletes your account and all its records.\n")
		var err error
		text, err = a.prompt(fmt.Sprintf("Type %q to confirm: ", session.DeleteConfirmation))
		if err != nil {
			return err
		}
	}

	if err := a.session.DeleteAccount(ctx, strings.TrimSpace(text)); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Account deleted.")
	return nil
}
