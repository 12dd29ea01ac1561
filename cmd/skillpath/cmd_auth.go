package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/skillpath/skillpath/internal/authclient"
)

const tokenFileName = "session"

// configDir returns ~/.skillpath, creating it if needed.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".skillpath")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

func loadToken() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(dir, tokenFileName))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(token string) error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, tokenFileName), []byte(token+"\n"), 0600)
}

func clearToken() error {
	dir, err := configDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, tokenFileName))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// newClient builds an auth client carrying the stored session token.
func newClient() *authclient.Client {
	client := authclient.New(daemonAddr())
	if token := loadToken(); token != "" {
		client.SetToken(token)
	}
	return client
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

func cmdSignUp(args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	client := newClient()
	ctx := context.Background()

	result, err := client.SignUp(ctx, *email, password, *first, *last)
	if err != nil {
		var statusErr *authclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			return offerResend(ctx, client, *email)
		}
		return fmt.Errorf("sign up: %w", err)
	}

	fmt.Printf("Account created for %s.\n", result.User.Email)
	fmt.Println("Check your email for the verification link, then paste the token here.")

	token, err := readLine("Verification token: ")
	if err != nil {
		return err
	}

	session, err := client.Verify(ctx, token)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	if err := saveToken(client.Token()); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	fmt.Printf("Verified and signed in as %s %s <%s>.\n", session.FirstName, session.LastName, session.Email)
	return nil
}

// offerResend handles signup against an email that already has an
// account: the user may request a fresh verification token and finish
// verifying here.
func offerResend(ctx context.Context, client *authclient.Client, email string) error {
	fmt.Println("An account with that email already exists.")

	answer, err := readLine("Resend the verification email? [y/N]: ")
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") {
		return nil
	}

	if _, err := client.ResendVerification(ctx, email); err != nil {
		return fmt.Errorf("resend verification: %w", err)
	}
	fmt.Println("Verification email sent.")

	token, err := readLine("Verification token: ")
	if err != nil {
		return err
	}

	session, err := client.Verify(ctx, token)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if err := saveToken(client.Token()); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	fmt.Printf("Verified and signed in as %s %s <%s>.\n", session.FirstName, session.LastName, session.Email)
	return nil
}

func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func cmdSignIn(args []string) error {
	fs := flag.NewFlagSet("signin", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	client := newClient()
	session, err := client.SignIn(context.Background(), *email, password)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	if err := saveToken(client.Token()); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	fmt.Printf("Signed in as %s %s <%s>.\n", session.FirstName, session.LastName, session.Email)
	return nil
}

func cmdSignOut() error {
	client := newClient()
	if client.Token() == "" {
		fmt.Println("Not signed in.")
		return nil
	}

	if err := client.SignOut(context.Background()); err != nil {
		// Clear the stored token regardless
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := clearToken(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Println("Signed out.")
	return nil
}

func cmdWhoAmI() error {
	client := newClient()

	session, err := client.CurrentSession(context.Background())
	if err != nil {
		return fmt.Errorf("session lookup: %w", err)
	}
	if session == nil {
		fmt.Println("Not signed in.")
		return nil
	}

	fmt.Printf("%s %s <%s>\n", session.FirstName, session.LastName, session.Email)
	fmt.Printf("Session expires %s\n", session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}
