package command

import (
	"context"
	"fmt"
	"io"

	"libraryhub/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an admin account",
	Long:  `Create an admin account. The password is prompted for when --password is not given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		fullName, _ := cmd.Flags().GetString("full-name")
		password, _ := cmd.Flags().GetString("password")

		if password == "" {
			var err error
			if password, err = readPassword("Password: ", true); err != nil {
				return err
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return createAdmin(cmd.Context(), a.accounts, cmd.OutOrStdout(), service.RegisterInput{
			Username: username,
			Password: password,
			FullName: fullName,
		})
	},
}

func createAdmin(ctx context.Context, accounts service.AccountService, out io.Writer, in service.RegisterInput) error {
	user, err := accounts.CreateAdmin(ctx, in)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Admin %q created (ID: %d)\n", user.Username, user.ID)
	return nil
}

func init() {
	adminCreateCmd.Flags().String("username", "", "admin username")
	adminCreateCmd.Flags().String("full-name", "Administrator", "display name")
	adminCreateCmd.Flags().String("password", "", "password (prompted when empty)")
	_ = adminCreateCmd.MarkFlagRequired("username")

	adminCmd.AddCommand(adminCreateCmd)
}
