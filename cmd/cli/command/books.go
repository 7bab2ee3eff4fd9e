package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"libraryhub/internal/catalogio"
	"libraryhub/internal/microservices/http-api/service"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Import and export the catalog",
}

var booksImportCmd = &cobra.Command{
	Use:   "import [file.xlsx]",
	Short: "Add books from an xlsx workbook",
	Long: `Add books from the first sheet of an xlsx workbook. The header row must name
Title, Author, ISBN and Total Copies; Available Copies, Category, Publisher,
Publication Year, Page Count, Language and Description are optional.
Books whose ISBN is already in the catalog are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return importBooks(cmd.Context(), a.books, f, cmd.OutOrStdout())
	},
}

var booksExportCmd = &cobra.Command{
	Use:   "export [file.xlsx]",
	Short: "Write the catalog to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		n, err := exportBooks(cmd.Context(), a.books, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Exported %d books to %s\n", n, args[0])
		return nil
	},
}

func importBooks(ctx context.Context, books service.BookService, r io.Reader, out io.Writer) error {
	parsed, skipped, err := catalogio.Import(r)
	if err != nil {
		return err
	}

	warn := color.New(color.FgYellow)
	for _, s := range skipped {
		warn.Fprintf(out, "- skipped %s\n", s.Error())
	}

	added, failed := 0, 0
	for i := range parsed {
		b := parsed[i]
		err := books.Create(ctx, &b)
		switch {
		case err == nil:
			added++
		case errors.Is(err, service.ErrConflict):
			warn.Fprintf(out, "- %s (%s) already in catalog\n", b.Title, b.ISBN)
		case errors.Is(err, service.ErrValidation):
			failed++
			warn.Fprintf(out, "- %s: %v\n", b.ISBN, err)
		default:
			return fmt.Errorf("import %s: %w", b.ISBN, err)
		}
	}

	color.New(color.FgGreen).Fprintf(out, "✓ %d books added", added)
	if n := failed + len(skipped); n > 0 {
		fmt.Fprintf(out, ", %d rows rejected", n)
	}
	fmt.Fprintln(out)
	return nil
}

func exportBooks(ctx context.Context, books service.BookService, w io.Writer) (int, error) {
	list, err := books.List(ctx, "")
	if err != nil {
		return 0, err
	}
	if err := catalogio.Export(w, list); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(list), nil
}

func init() {
	booksCmd.AddCommand(booksImportCmd, booksExportCmd)
}
