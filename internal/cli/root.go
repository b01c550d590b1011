// Package cli implements the docverify command line tool.
//
// The commands work on files holding wrapped documents and use the same configuration
// (RPC_URLS, DNS_RESOLVER_URLS etc) as the server.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/doc-verifier/internal/config"
	"github.com/information-sharing-networks/doc-verifier/internal/docverify"
	"github.com/information-sharing-networks/doc-verifier/internal/logger"
	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
	"github.com/information-sharing-networks/doc-verifier/internal/verify"
	"github.com/information-sharing-networks/doc-verifier/internal/version"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	cfg    *config.ServerEnvironment
	logger *slog.Logger

	// newService is replaced in tests
	newService func() (*docverify.Service, error)
}

// NewRootCommand returns the docverify command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	a.newService = a.defaultService
	return a.rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "docverify",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Verify, encrypt and inspect wrapped OpenAttestation documents",
		Long: `docverify works out the network a wrapped OpenAttestation (v2 or v3) document was issued on,
verifies it against that network and encrypts or decrypts it the way the verifier server stores documents.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a.cfg, err = config.NewServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			a.logger = logger.InitLoggerWithWriter(cmd.ErrOrStderr(), logger.ParseLogLevel(a.cfg.LogLevel), a.cfg.Environment)
			return nil
		},
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	rootCmd.AddCommand(
		a.networkCommand(),
		a.verifyCommand(),
		a.encryptCommand(),
		a.decryptCommand(),
		a.obfuscateCommand(),
		a.keygenCommand(),
		a.receiptCommand(),
	)
	return rootCmd
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultService builds the verification service from the configuration.
func (a *app) defaultService() (*docverify.Service, error) {
	overrides, err := a.cfg.RPCURLOverrides()
	if err != nil {
		return nil, err
	}

	table, err := network.NewTable(network.Config{
		RPCOverrides:    overrides,
		AmoyFallbackURL: a.cfg.AmoyFallbackRPCURL,
		ProbeTimeout:    a.cfg.ProviderProbeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build network table: %w", err)
	}

	resolver := verify.NewDoHResolver(a.cfg.DNSResolverURLs, a.cfg.DNSTimeout)
	return docverify.NewService(table, resolver, nil, a.logger), nil
}

func readDocument(path string) (*oa.WrappedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := oa.ParseWrappedDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s is not a JSON document: %w", path, err)
	}
	return doc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
