package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/verify"
)

func (a *app) networkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "network <file>",
		Short: "Print the network a wrapped document was issued on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			service, err := a.newService()
			if err != nil {
				return err
			}

			name, err := service.ValidateNetwork(doc)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

type verifyOutput struct {
	Network string           `json:"network"`
	Valid   bool             `json:"valid"`
	Summary verify.Fragments `json:"summary"`
}

func (a *app) verifyCommand() *cobra.Command {
	var networkName string

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify a wrapped document against the network it was issued on",
		Long: `Verify a wrapped document and print the verification fragments as JSON.

The command exits with an error when the document is not valid.

Example:
  docverify verify ./invoice.tt
  docverify verify --network sepolia ./invoice.tt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			service, err := a.newService()
			if err != nil {
				return err
			}

			if networkName == "" {
				if networkName, err = service.ValidateNetwork(doc); err != nil {
					return err
				}
			}

			fragments, err := service.ValidateDocument(cmd.Context(), doc, networkName)

			var verificationErr *docverify.VerificationError
			if errors.As(err, &verificationErr) && verificationErr.Fragments() != nil {
				if writeErr := writeJSON(cmd.OutOrStdout(), verifyOutput{Network: networkName, Summary: verificationErr.Fragments()}); writeErr != nil {
					return writeErr
				}
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), verifyOutput{Network: networkName, Valid: true, Summary: fragments})
		},
	}

	cmd.Flags().StringVarP(&networkName, "network", "n", "", "Network to verify on (default: the network declared by the document)")
	return cmd
}
