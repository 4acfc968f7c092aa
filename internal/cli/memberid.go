// internal/cli/memberid.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"sinoman/internal/memberid"
)

func newMemberIDCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memberid",
		Short: "Generate and validate member identifiers",
	}

	var branch string
	generate := &cobra.Command{
		Use:   "generate MEMBER_NUMBER",
		Short: "Generate a member ID with checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if branch != "" && !memberid.IsKnownBranch(branch) {
				return fmt.Errorf("unknown branch %q", branch)
			}
			id, err := memberid.Generate(args[0], branch)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	generate.Flags().StringVar(&branch, "branch", memberid.DefaultBranch, "branch code")

	validate := &cobra.Command{
		Use:   "validate MEMBER_ID",
		Short: "Check a member ID's structure and checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !memberid.Validate(args[0]) {
				return fmt.Errorf("invalid member ID %q", args[0])
			}
			id, _ := memberid.Parse(args[0])
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "valid: branch=%s member=%s\n", id.BranchCode, id.MemberNumber)
			return err
		},
	}

	cmd.AddCommand(generate, validate)
	return cmd
}
