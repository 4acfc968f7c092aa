// internal/cli/card.go
package cli

import (
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sinoman/internal/clients"
	"sinoman/internal/membercard"
)

type codecFlags struct {
	secret      string
	salt        string
	checksumKey string
}

func (f *codecFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.secret, "secret", os.Getenv("CARD_SECRET"), "card encryption secret")
	cmd.Flags().StringVar(&f.salt, "salt", envOr("CARD_SALT", "koperasi-sinoman"), "card key derivation salt")
	cmd.Flags().StringVar(&f.checksumKey, "checksum-key", os.Getenv("CARD_CHECKSUM_KEY"), "keyed checksum secret")
}

func (f *codecFlags) codec() (*membercard.Codec, error) {
	return membercard.NewKeyedCodec(f.secret, f.salt, f.checksumKey)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func newCardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Issue and verify member card QR payloads",
	}

	var issueFlags codecFlags
	var file string
	var opts membercard.GenerateOptions
	var expires int
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Generate a member card QR from a JSON member record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			var data membercard.MemberCardData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("decode member record: %w", err)
			}
			if err := data.Validate(); err != nil {
				return err
			}
			if cmd.Flags().Changed("expires-in") {
				opts.ExpirationDays = &expires
			}

			codec, err := issueFlags.codec()
			if err != nil {
				return err
			}
			qr, err := codec.GenerateMemberCardQR(data, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), qr)
		},
	}
	issue.Flags().StringVarP(&file, "file", "f", "-", "member record JSON file, - for stdin")
	issue.Flags().BoolVar(&opts.IncludePersonalData, "personal", false, "include NIK, phone and e-mail")
	issue.Flags().BoolVar(&opts.EncryptData, "encrypt", false, "encrypt the payload")
	issue.Flags().IntVar(&expires, "expires-in", 0, "days until the card expires")
	issueFlags.register(issue)

	var verifyFlags codecFlags
	var quick bool
	verify := &cobra.Command{
		Use:   "verify QR_DATA",
		Short: "Verify a scanned member card payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			qr := strings.TrimSpace(args[0])
			server, _ := cmd.Flags().GetString("server")

			if server != "" {
				client := clients.NewCardClient(server, zap.NewNop())
				if quick {
					res, err := client.QuickVerify(cmd.Context(), qr)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), res)
				}
				res, err := client.VerifyCard(cmd.Context(), qr)
				if err != nil {
					return err
				}
				return reportVerification(cmd, *res)
			}

			codec, err := verifyFlags.codec()
			if err != nil {
				return err
			}
			if quick {
				return printJSON(cmd.OutOrStdout(), codec.QuickVerifyMemberQR(qr))
			}
			return reportVerification(cmd, codec.VerifyMemberCardQR(qr))
		},
	}
	verify.Flags().BoolVar(&quick, "quick", false, "only report validity and member identity")
	verifyFlags.register(verify)

	cmd.AddCommand(issue, verify)
	return cmd
}

func reportVerification(cmd *cobra.Command, res membercard.VerificationResult) error {
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.IsValid {
		return fmt.Errorf("card rejected: %s", strings.Join(res.Errors, "; "))
	}
	return nil
}
