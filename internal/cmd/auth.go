package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/pulse/internal/api"
	"github.com/atikulmunna/pulse/internal/output"
	"github.com/atikulmunna/pulse/internal/session"
)

var (
	loginUser string
	loginPass string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate as an administrator",
	Long: `Exchange administrator credentials for an access token and store it for
later commands. The password is read from --password, $PULSE_PASSWORD, or
the first line of standard input.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored identity",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUser, "username", "u", "admin", "administrator username")
	loginCmd.Flags().StringVarP(&loginPass, "password", "p", "", "administrator password")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	password := loginPass
	if password == "" {
		password = v.GetString("password")
	}
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	client, sess, err := newClient()
	if err != nil {
		return err
	}
	token, err := client.Login(ctx, loginUser, password)
	if errors.Is(err, api.ErrInvalidCredentials) {
		return errors.New("credenciales incorrectas")
	}
	if err != nil {
		return err
	}
	if err := sess.Login(token); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged in as", loginUser)
	return nil
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	claims, err := s.Claims()
	if errors.Is(err, session.ErrNoToken) {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput() {
		return output.WriteJSON(out, map[string]any{
			"subject":    claims.Subject,
			"expires_at": claims.ExpiresAt,
			"expired":    claims.Expired(time.Now()),
			"session_id": s.ID(),
		})
	}
	rows := [][]string{{"subject", claims.Subject}}
	if !claims.ExpiresAt.IsZero() {
		exp := claims.ExpiresAt.Local().Format(time.RFC1123)
		if claims.Expired(time.Now()) {
			exp += " (expired)"
		}
		rows = append(rows, []string{"expires", exp})
	}
	fmt.Fprintln(out, output.Table([]string{"Field", "Value"}, rows))
	return nil
}
