package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var authToken string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the GitHub API key",
	Long: `Store and check the GitHub personal access token used for code search.

The token is read from github.token in the config file, then from the
GITHUB_TOKEN environment variable. Code search needs an authenticated token.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Save a GitHub personal access token",
	Long: `Save a GitHub personal access token to the config file.

Without --token the token is read from the terminal without echo.`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the configured token and search quota",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "personal access token")
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if tokenStore == nil {
		return errors.New("token store not configured")
	}

	token := strings.TrimSpace(authToken)
	if token == "" {
		cmd.Print("GitHub token: ")
		token = readPassword(cmd.InOrStdin())
		cmd.Println()
	}
	if token == "" {
		return errors.New("no token given")
	}

	if err := tokenStore.SetToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	cmd.Println(successStyle.Render("Token saved."))

	if credentialChecker == nil {
		return nil
	}
	login, err := credentialChecker.Validate(context.Background())
	if err != nil {
		cmd.Println(warningStyle.Render(fmt.Sprintf("Token could not be verified: %v", err)))
		return nil
	}
	cmd.Printf("Authenticated as %s\n", login)
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if tokenStore == nil {
		return errors.New("token store not configured")
	}

	if !tokenStore.IsAuthenticated() {
		cmd.Println(errorStyle.Render("No GitHub token configured."))
		cmd.Println("Run 'harvester auth login' or set GITHUB_TOKEN.")
		return nil
	}
	cmd.Printf("Token source: %s\n", tokenStore.Source())

	if credentialChecker == nil {
		return nil
	}

	ctx := context.Background()
	login, err := credentialChecker.Validate(ctx)
	if errors.Is(err, domain.ErrAuthInvalid) {
		cmd.Println(errorStyle.Render("Token rejected by GitHub (401)."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to verify token: %w", err)
	}
	cmd.Printf("Authenticated as %s\n", successStyle.Render(login))

	quota, err := credentialChecker.Quota(ctx)
	if err != nil {
		return fmt.Errorf("failed to read quota: %w", err)
	}
	cmd.Printf("Code search quota: %d/%d, resets at %s\n",
		quota.Remaining, quota.Limit, quota.ResetAt.Local().Format("15:04:05"))
	return nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
