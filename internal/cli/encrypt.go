package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/doc-verifier/internal/crypto"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
)

func (a *app) encryptCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "encrypt <file>",
		Short: "Encrypt a document the way the server stores it",
		Long: `Encrypt the file with AES-256-GCM and print {encryptedDocument, encryptedDocumentKey}.

A new key is generated unless --key is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			result, err := docverify.GetEncryptedDocument(string(data), key)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Existing key (64 hex characters)")
	return cmd
}

// encryptedInput accepts the outputs of the encrypt command and of GET /storage/{id} as well as a bare payload.
type encryptedInput struct {
	crypto.EncryptedPayload

	EncryptedDocument *crypto.EncryptedPayload `json:"encryptedDocument"`
	Document          *crypto.EncryptedPayload `json:"document"`
}

func (in encryptedInput) payload() crypto.EncryptedPayload {
	switch {
	case in.EncryptedDocument != nil:
		return *in.EncryptedDocument
	case in.Document != nil:
		return *in.Document
	default:
		return in.EncryptedPayload
	}
}

func (a *app) decryptCommand() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "decrypt <file>",
		Short: "Decrypt an encrypted document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			var in encryptedInput
			if err := json.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("%s is not an encrypted document: %w", args[0], err)
			}

			plaintext, err := crypto.DecryptString(in.payload(), key)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), plaintext)
			return err
		},
	}

	cmd.Flags().StringVarP(&key, "key", "k", "", "Key returned when the document was encrypted [required]")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
