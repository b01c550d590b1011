package cli

import (
	"crypto/ed25519"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
)

// file naming convention - name.public.jwk and name.private.jwk
const (
	publicKeyFileNameFormat  = "%s.public.jwk"
	privateKeyFileNameFormat = "%s.private.jwk"
)

func (a *app) keygenCommand() *cobra.Command {
	var (
		outputDir string
		name      string
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an Ed25519 receipt signing key",
		Long: `Generate an Ed25519 key pair in JWK format.

Point RECEIPT_SIGNING_KEY_PATH at the private key to have the server sign verification receipts.
The key id is the JWK thumbprint of the public key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outputDir, err)
			}

			privateKey, err := crypto.GenerateEd25519KeyPair()
			if err != nil {
				return err
			}

			signer, err := crypto.NewReceiptSigner(privateKey)
			if err != nil {
				return err
			}
			keyID := signer.KeyID()

			privateFile := fmt.Sprintf(privateKeyFileNameFormat, name)
			publicFile := fmt.Sprintf(publicKeyFileNameFormat, name)

			if err := crypto.SaveEd25519PrivateKeyToJWKFile(privateKey, keyID, outputDir, privateFile); err != nil {
				return err
			}
			if err := crypto.SaveEd25519PublicKeyToJWKFile(privateKey.Public().(ed25519.PublicKey), keyID, outputDir, publicFile); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "key id:      %s\n", keyID)
			fmt.Fprintf(out, "private key: %s/%s\n", outputDir, privateFile)
			fmt.Fprintf(out, "public key:  %s/%s\n", outputDir, publicFile)
			fmt.Fprintln(out, "keep the private key secret: it is not encrypted")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for the generated keys [required]")
	cmd.Flags().StringVar(&name, "name", "receipt", "File name prefix")
	_ = cmd.MarkFlagRequired("outputdir")
	return cmd
}

func (a *app) receiptCommand() *cobra.Command {
	var jwksPath string

	cmd := &cobra.Command{
		Use:   "receipt <token>",
		Short: "Check a verification receipt and print its claims",
		Long: `Check the signature of a receipt returned by POST /verify against a JWK set
(e.g. a copy of /.well-known/jwks.json or the public key written by keygen).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keySet, err := jwk.ReadFile(jwksPath)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", jwksPath, err)
			}

			receipt, err := crypto.VerifyReceipt(args[0], keySet)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), receipt)
		},
	}

	cmd.Flags().StringVar(&jwksPath, "jwks", "", "Path to the JWK set [required]")
	_ = cmd.MarkFlagRequired("jwks")
	return cmd
}
