package console

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/identity"
)

func newLoginCmd(a *App) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.prompt("Email", email)
			if err != nil {
				return err
			}
			password, err := a.readSecret("Password")
			if err != nil {
				return err
			}

			sess, err := a.client.Login(ctx, addr, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			stored := &identity.Session{Token: sess.BearerToken(), Email: addr, CreatedAt: a.now().UTC()}
			if err := a.id.Bootstrap(ctx, stored, a.client, a.now()); err != nil {
				return err
			}
			stored.UserID = a.id.UserID()
			if err := identity.SaveSession(a.cfg.Session.Path, stored); err != nil {
				return err
			}

			a.logger.Info().Str("user_id", stored.UserID).Msg("logged in")
			profile, _ := a.id.Profile()
			a.printf("Logged in as %s <%s> (%s)\n", profile.Name, profile.Email, profile.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := identity.RemoveSession(a.cfg.Session.Path); err != nil {
				return err
			}
			a.id.Clear()
			a.printf("Logged out\n")
			return nil
		},
	}
}

func newWhoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			p, _ := a.id.Profile()
			printProfile(a.out, p)
			return nil
		},
	}
}

func newRegisterCmd(a *App) *cobra.Command {
	var (
		in        api.RegisterInput
		role      string
		imagePath string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a seller or customer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.Name, err = a.prompt("Name", in.Name); err != nil {
				return err
			}
			if in.Email, err = a.prompt("Email", in.Email); err != nil {
				return err
			}
			if in.Password, err = a.readSecret("Password"); err != nil {
				return err
			}
			if in.ConfirmPassword, err = a.readSecret("Confirm password"); err != nil {
				return err
			}
			in.Role = domain.Role(role)

			if imagePath != "" {
				f, closer, err := api.OpenFile(imagePath)
				if err != nil {
					return err
				}
				defer closer.Close()
				in.Image = f
			}

			if err := a.client.Register(cmd.Context(), in); err != nil {
				return err
			}
			a.printf("Account created for %s. Check your inbox for the activation link.\n", in.Email)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "full name")
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&role, "role", string(domain.RoleCustomer), "seller or customer")
	f.StringVar(&in.Gender, "gender", "", "gender")
	f.StringVar(&in.Address, "address", "", "postal address")
	f.StringVar(&in.Phone, "phone", "", "phone number")
	f.StringVar(&imagePath, "image", "", "profile image file")
	return cmd
}

func newActivateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <token>",
		Short: "Activate an account with the emailed token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.Activate(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("Account activated. You can log in now.\n")
			return nil
		},
	}
}

func newForgotPasswordCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "forgot-password <email>",
		Short: "Request a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.ForgotPassword(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printf("If %s has an account, a reset link is on its way.\n", args[0])
			return nil
		},
	}
}

func newResetPasswordCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <token>",
		Short: "Choose a new password with the emailed reset token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			verified, err := a.client.VerifyResetToken(ctx, args[0])
			if err != nil {
				return fmt.Errorf("reset token rejected: %w", err)
			}
			password, err := a.readSecret("New password")
			if err != nil {
				return err
			}
			confirm, err := a.readSecret("Confirm password")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			if err := a.client.ResetPassword(ctx, verified, password); err != nil {
				return err
			}
			a.printf("Password updated.\n")
			return nil
		},
	}
}

func printProfile(w io.Writer, p domain.UserProfile) {
	fmt.Fprintf(w, "ID:      %s\n", p.ID)
	fmt.Fprintf(w, "Name:    %s\n", p.Name)
	fmt.Fprintf(w, "Email:   %s\n", p.Email)
	fmt.Fprintf(w, "Role:    %s\n", p.Role)
	if p.Status != "" {
		fmt.Fprintf(w, "Status:  %s\n", p.Status)
	}
	if p.Phone != "" {
		fmt.Fprintf(w, "Phone:   %s\n", p.Phone)
	}
	if p.Address != "" {
		fmt.Fprintf(w, "Address: %s\n", p.Address)
	}
	if img := p.Image.Best(); img != "" {
		fmt.Fprintf(w, "Image:   %s\n", img)
	}
}

func shortDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
