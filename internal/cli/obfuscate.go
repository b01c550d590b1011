package cli

import (
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

func (a *app) obfuscateCommand() *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "obfuscate <file>",
		Short: "Remove fields from a wrapped document without breaking its signature",
		Long: `Remove fields from a wrapped document. The hashes of the removed values are kept in the
document so that it still verifies.

Example:
  docverify obfuscate --field recipient.name --field recipient.address ./invoice.tt > redacted.tt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			obfuscated, err := oa.Obfuscate(doc, fields...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), obfuscated)
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Dot separated path of a field to remove (repeatable) [required]")
	_ = cmd.MarkFlagRequired("field")
	return cmd
}
