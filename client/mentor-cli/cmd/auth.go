package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSignupCmd() *cobra.Command {
	var req struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		University string `json:"university,omitempty"`
		Program    string `json:"program,omitempty"`
		Year       int    `json:"year,omitempty"`
		Password   string `json:"password,omitempty"`
	}
	c := &cobra.Command{
		Use:   "signup",
		Short: "Create a student account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				StudentID string `json:"student_id"`
			}
			if err := newClient().PostJSON(cmd.Context(), "/api/v1/auth/signup", req, &resp); err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Student ID: %s\n", resp.StudentID)
			fmt.Fprintln(cmd.OutOrStdout(), "Run `mentor-cli login --email ...` to start chatting.")
			return nil
		},
	}
	c.Flags().StringVar(&req.Name, "name", "", "your full name")
	c.Flags().StringVar(&req.Email, "email", "", "your email address")
	c.Flags().StringVar(&req.University, "university", "", "university")
	c.Flags().StringVar(&req.Program, "program", "", "program of study")
	c.Flags().IntVar(&req.Year, "year", 0, "year of study (1-10)")
	c.Flags().StringVar(&req.Password, "password", "", "password (not stored by the server)")
	_ = c.MarkFlagRequired("name")
	_ = c.MarkFlagRequired("email")
	return c
}

func newLoginCmd() *cobra.Command {
	var email, password string
	c := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s session
			body := map[string]string{"email": email, "password": password}
			if err := newClient().PostJSON(cmd.Context(), "/api/v1/auth/login", body, &s); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := saveSession(sessionPath, s); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (conversation %s)\n", s.StudentID, s.ConversationID)
			return nil
		},
	}
	c.Flags().StringVar(&email, "email", "", "your email address")
	c.Flags().StringVar(&password, "password", "", "password (not checked by the server)")
	_ = c.MarkFlagRequired("email")
	return c
}
