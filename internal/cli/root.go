// internal/cli/root.go
package cli

import (
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the sinomanctl command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sinomanctl",
		Short:         "Koperasi Sinoman back-office CLI",
		Long:          "Generate and check member IDs and card QR payloads, and run the cooperative's financial calculations.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("server", "", "card service base URL; commands run locally when empty")

	root.AddCommand(newMemberIDCommand())
	root.AddCommand(newCardCommand())
	root.AddCommand(newLoanCommand())
	root.AddCommand(newInterestCommand())
	root.AddCommand(newSHUCommand())
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
