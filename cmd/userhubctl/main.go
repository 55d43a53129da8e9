package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/pflag"

	"userhub/pkg/authclient"
)

const defaultServer = "http://localhost:8080/api"

const usage = `Usage: userhubctl [--server URL] [--session FILE] <command>

Commands:
  register --name NAME --email EMAIL --password PASS [--confirm PASS]
  login --email EMAIL --password PASS
  logout
  profile
  refresh
  users list [--page N] [--per-page N]
  users search QUERY
  users get ID
  users update ID [--name NAME] [--email EMAIL]
  users delete ID
  stats
  change-password --current PASS --new PASS [--confirm PASS]
  delete-account
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := pflag.NewFlagSet("userhubctl", pflag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	server := global.String("server", defaultServer, "API base URL")
	sessionFile := global.String("session", defaultSessionFile(), "Session file path")

	// Stop at the first non-flag argument, it is the command
	global.SetInterspersed(false)

	if err := global.Parse(args); err != nil {
		return err
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("no command given")
	}

	client, err := authclient.New(*server, authclient.Options{
		Store: authclient.NewFileStore(*sessionFile),
	})
	if err != nil {
		return err
	}

	command, commandArgs := rest[0], rest[1:]
	switch command {
	case "register":
		return runRegister(ctx, client, commandArgs, out)
	case "login":
		return runLogin(ctx, client, commandArgs, out)
	case "logout":
		return client.Logout(ctx)
	case "profile":
		user, err := client.Profile(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, user)
	case "refresh":
		token, err := client.RefreshToken(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]string{"access_token": token})
	case "users":
		return runUsers(ctx, client, commandArgs, out)
	case "stats":
		stats, err := client.Statistics(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, stats)
	case "change-password":
		return runChangePassword(ctx, client, commandArgs)
	case "delete-account":
		return client.DeleteOwnAccount(ctx)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runRegister(ctx context.Context, client *authclient.Client, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	confirm := fs.String("confirm", "", "Password confirmation (defaults to the password)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *confirm == "" {
		*confirm = *password
	}

	user, err := client.Register(ctx, *name, *email, *password, *confirm)
	if err != nil {
		return err
	}
	return printJSON(out, user)
}

func runLogin(ctx context.Context, client *authclient.Client, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := client.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return printJSON(out, user)
}

func runUsers(ctx context.Context, client *authclient.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("users: missing subcommand (list, search, get, update, delete)")
	}

	sub, subArgs := args[0], args[1:]
	switch sub {
	case "list":
		fs := pflag.NewFlagSet("users list", pflag.ContinueOnError)
		page := fs.Int("page", 1, "Page number")
		perPage := fs.Int("per-page", 10, "Users per page")
		if err := fs.Parse(subArgs); err != nil {
			return err
		}

		result, err := client.ListUsers(ctx, *page, *perPage)
		if err != nil {
			return err
		}
		return printJSON(out, result)

	case "search":
		if len(subArgs) != 1 {
			return errors.New("users search: exactly one query argument expected")
		}

		users, err := client.SearchUsers(ctx, subArgs[0])
		if err != nil {
			return err
		}
		return printJSON(out, users)

	case "get":
		id, err := userIDArg(subArgs)
		if err != nil {
			return err
		}

		user, err := client.GetUser(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(out, user)

	case "update":
		fs := pflag.NewFlagSet("users update", pflag.ContinueOnError)
		name := fs.String("name", "", "New display name")
		email := fs.String("email", "", "New email address")
		if err := fs.Parse(subArgs); err != nil {
			return err
		}

		id, err := userIDArg(fs.Args())
		if err != nil {
			return err
		}

		arg := authclient.UpdateUserRequest{}
		if fs.Changed("name") {
			arg.Name = name
		}
		if fs.Changed("email") {
			arg.Email = email
		}

		user, err := client.UpdateUser(ctx, id, arg)
		if err != nil {
			return err
		}
		return printJSON(out, user)

	case "delete":
		id, err := userIDArg(subArgs)
		if err != nil {
			return err
		}
		return client.DeleteUser(ctx, id)

	default:
		return fmt.Errorf("users: unknown subcommand %q", sub)
	}
}

func runChangePassword(ctx context.Context, client *authclient.Client, args []string) error {
	fs := pflag.NewFlagSet("change-password", pflag.ContinueOnError)
	current := fs.String("current", "", "Current password")
	newPassword := fs.String("new", "", "New password")
	confirm := fs.String("confirm", "", "New password confirmation (defaults to the new password)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *confirm == "" {
		*confirm = *newPassword
	}

	return client.ChangePassword(ctx, *current, *newPassword, *confirm)
}

func userIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("exactly one user id argument expected")
	}

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", args[0])
	}
	return id, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".userhub-session.json"
	}
	return filepath.Join(home, ".userhub-session.json")
}
