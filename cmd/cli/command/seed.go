package command

import (
	"context"
	"errors"
	"fmt"
	"io"

	"libraryhub/database"
	"libraryhub/internal/microservices/http-api/models"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with an admin account and sample books",
	Long: `Create the schema, an admin account and a small starter catalog.
Entries that already exist are skipped, so seeding twice is harmless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("admin-username")
		password, _ := cmd.Flags().GetString("admin-password")
		skipAdmin, _ := cmd.Flags().GetBool("skip-admin")

		if !skipAdmin && password == "" {
			var err error
			if password, err = readPassword(fmt.Sprintf("Password for %s: ", username), true); err != nil {
				return err
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var admin *service.RegisterInput
		if !skipAdmin {
			admin = &service.RegisterInput{Username: username, Password: password, FullName: "Administrator"}
		}
		return seed(cmd.Context(), a.accounts, a.books, cmd.OutOrStdout(), admin, database.SampleBooks())
	},
}

// seed creates admin (when non-nil) and books, skipping entries that already exist.
func seed(ctx context.Context, accounts service.AccountService, books service.BookService, out io.Writer, admin *service.RegisterInput, catalog []models.Book) error {
	ok := color.New(color.FgGreen)
	skip := color.New(color.FgYellow)

	if admin != nil {
		user, err := accounts.CreateAdmin(ctx, *admin)
		switch {
		case err == nil:
			ok.Fprintf(out, "✓ Admin %q created (ID: %d)\n", user.Username, user.ID)
		case errors.Is(err, service.ErrConflict):
			skip.Fprintf(out, "- Admin %q already exists\n", admin.Username)
		default:
			return fmt.Errorf("create admin: %w", err)
		}
	}

	created := 0
	for i := range catalog {
		b := catalog[i]
		err := books.Create(ctx, &b)
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrConflict):
			skip.Fprintf(out, "- %s (%s) already in catalog\n", b.Title, b.ISBN)
		default:
			return fmt.Errorf("create book %s: %w", b.ISBN, err)
		}
	}
	ok.Fprintf(out, "✓ %d of %d sample books added\n", created, len(catalog))
	return nil
}

func init() {
	seedCmd.Flags().String("admin-username", "admin", "username of the seeded admin")
	seedCmd.Flags().String("admin-password", "", "password of the seeded admin (prompted when empty)")
	seedCmd.Flags().Bool("skip-admin", false, "only seed books")
}
