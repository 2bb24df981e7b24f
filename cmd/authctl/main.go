package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/elskow/authflow/internal/client"
)

const usage = `usage: authctl [flags] <command> [args]

commands:
  signup <email> <name>     create an account (prompts for password)
  verify <code>             confirm the emailed verification code
  login <email>             start a session (prompts for password)
  logout                    end the session
  whoami                    show the account behind the saved session
  forgot <email>            request a password reset link
  reset <token>             set a new password (prompts for password)
`

// session is what authctl keeps between runs.
type session struct {
	State   *client.State  `json:"state"`
	Cookies []*http.Cookie `json:"cookies,omitempty"`
}

func main() {
	server := flag.String("server", envOr("AUTHFLOW_SERVER", "http://localhost:5000"), "auth server base URL")
	stateFile := flag.String("state", defaultStateFile(), "file holding the saved session")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*server, *stateFile, *timeout, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(server, stateFile string, timeout time.Duration, args []string) error {
	c, err := client.New(server)
	if err != nil {
		return err
	}

	saved, err := load(stateFile)
	if err != nil {
		return err
	}
	c.SetCookies(saved.Cookies)
	st := saved.State

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmdErr := dispatch(ctx, c, st, args)

	saved.Cookies = c.Cookies()
	if err := save(stateFile, saved); err != nil {
		return errors.Join(cmdErr, err)
	}
	if cmdErr != nil && st.Error != "" {
		return errors.New(st.Error)
	}
	return cmdErr
}

func dispatch(ctx context.Context, c *client.Client, st *client.State, args []string) error {
	cmd, rest := args[0], args[1:]
	need := func(n int) error {
		if len(rest) != n {
			return fmt.Errorf("%s expects %d argument(s)\n\n%s", cmd, n, usage)
		}
		return nil
	}

	switch cmd {
	case "signup":
		if err := need(2); err != nil {
			return err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		if err := c.Signup(ctx, st, rest[0], password, rest[1]); err != nil {
			return err
		}
		fmt.Printf("Signed up as %s. Check your inbox for the verification code.\n", st.User.Email)

	case "verify":
		if err := need(1); err != nil {
			return err
		}
		user, err := c.VerifyEmail(ctx, st, rest[0])
		if err != nil {
			return err
		}
		fmt.Printf("Email %s verified.\n", user.Email)

	case "login":
		if err := need(1); err != nil {
			return err
		}
		password, err := readPassword("Password: ")
		if err != nil {
			return err
		}
		if err := c.Login(ctx, st, rest[0], password); err != nil {
			return err
		}
		fmt.Printf("Logged in as %s.\n", st.User.Email)

	case "logout":
		if err := c.Logout(ctx, st); err != nil {
			return err
		}
		fmt.Println("Logged out.")

	case "whoami":
		if err := c.CheckAuth(ctx, st); err != nil {
			if client.IsUnauthorized(err) {
				fmt.Println("Not logged in.")
				return nil
			}
			return err
		}
		verified := "unverified"
		if st.User.IsVerified {
			verified = "verified"
		}
		fmt.Printf("%s <%s> (%s)\n", st.User.Name, st.User.Email, verified)

	case "forgot":
		if err := need(1); err != nil {
			return err
		}
		if err := c.ForgotPassword(ctx, st, rest[0]); err != nil {
			return err
		}
		fmt.Println(st.Message)

	case "reset":
		if err := need(1); err != nil {
			return err
		}
		password, err := confirmPassword(readPassword)
		if err != nil {
			return err
		}
		if err := c.ResetPassword(ctx, st, rest[0], password); err != nil {
			return err
		}
		fmt.Println(st.Message)

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
	return nil
}

// stdin is shared so a piped second line survives buffering by the first read.
var stdin = bufio.NewReader(os.Stdin)

var errPasswordMismatch = errors.New("passwords do not match")

// confirmPassword asks for the new password twice.
func confirmPassword(read func(prompt string) (string, error)) (string, error) {
	password, err := read("New password: ")
	if err != nil {
		return "", err
	}
	again, err := read("Confirm new password: ")
	if err != nil {
		return "", err
	}
	if password != again {
		return "", errPasswordMismatch
	}
	return password, nil
}

// readPassword does not echo when stdin is a terminal and reads one line
// otherwise, so passwords can be piped in scripts.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return string(raw), err
	}

	fmt.Fprint(os.Stderr, prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func load(path string) (*session, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &session{State: client.NewState()}, nil
	}
	if err != nil {
		return nil, err
	}

	var s session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}
	if s.State == nil {
		s.State = client.NewState()
	}
	return &s, nil
}

func save(path string, s *session) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".authctl.json"
	}
	return filepath.Join(dir, "authflow", "session.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
