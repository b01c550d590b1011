package verify

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/information-sharing-networks/doc-verifier/internal/network"
	"github.com/information-sharing-networks/doc-verifier/internal/oa"
)

// Options are passed to every verifier in a pipeline.
type Options struct {
	// Provider is used for contract reads and for the chain id of DNS-TXT records.
	Provider network.Provider

	// Resolver looks up DNS TXT records for the DNS identity proofs.
	Resolver TXTResolver

	Logger *slog.Logger
}

// Verifier is a single verification check.
type Verifier interface {
	Name() string
	Type() FragmentType

	// Test reports whether the verifier applies to the document. Verifiers that do not apply are SKIPPED.
	Test(doc *oa.WrappedDocument) bool

	// Verify runs the check. Failures are reported in the fragment, never as a panic or error.
	Verify(ctx context.Context, doc *oa.WrappedDocument, opts Options) Fragment
}

// Pipeline runs a fixed list of verifiers against a document.
type Pipeline func(ctx context.Context, doc *oa.WrappedDocument) Fragments

// Builder returns a pipeline running verifiers with opts.
//
// Applicable verifiers run concurrently; the fragments are returned in the order of verifiers.
// A verifier that panics cancels the context handed to the others.
func Builder(verifiers []Verifier, opts Options) Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return func(ctx context.Context, doc *oa.WrappedDocument) Fragments {
		fragments := make(Fragments, len(verifiers))

		g, gctx := errgroup.WithContext(ctx)
		for i, v := range verifiers {
			if !v.Test(doc) {
				fragments[i] = skipped(v)
				continue
			}
			g.Go(func() error {
				var err error
				fragments[i], err = runVerifier(gctx, v, doc, opts)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			opts.Logger.Warn("verification pipeline cancelled", slog.Any("error", err))
		}

		return fragments
	}
}

func runVerifier(ctx context.Context, v Verifier, doc *oa.WrappedDocument, opts Options) (fragment Fragment, err error) {
	defer func() {
		if r := recover(); r != nil {
			opts.Logger.Error("verifier panicked", slog.String("verifier", v.Name()), slog.Any("panic", r))
			err = fmt.Errorf("verifier %s failed: %v", v.Name(), r)
			fragment = errorFragment(v, CodeUnexpectedError, err.Error())
		}
	}()

	fragment = v.Verify(ctx, doc, opts)
	if fragment.Status != StatusValid {
		opts.Logger.Debug("verifier did not pass",
			slog.String("verifier", v.Name()),
			slog.String("status", string(fragment.Status)),
		)
	}
	return fragment, nil
}

type skipMessager interface {
	SkipMessage() string
}

func skipped(v Verifier) Fragment {
	message := "verifier does not apply to this document"
	if s, ok := v.(skipMessager); ok {
		message = s.SkipMessage()
	}
	return Fragment{
		Name:   v.Name(),
		Type:   v.Type(),
		Status: StatusSkipped,
		Reason: newReason(CodeSkipped, message),
	}
}

// verifier is the common implementation of the built-in checks.
type verifier struct {
	name         string
	fragmentType FragmentType
	skipMessage  string
	test         func(doc *oa.WrappedDocument) bool
	verify       func(ctx context.Context, doc *oa.WrappedDocument, opts Options) (Status, any, *Reason)
}

func (v *verifier) Name() string                      { return v.name }
func (v *verifier) Type() FragmentType                { return v.fragmentType }
func (v *verifier) SkipMessage() string               { return v.skipMessage }
func (v *verifier) Test(doc *oa.WrappedDocument) bool { return v.test(doc) }

func (v *verifier) Verify(ctx context.Context, doc *oa.WrappedDocument, opts Options) Fragment {
	status, data, reason := v.verify(ctx, doc, opts)
	return Fragment{Name: v.name, Type: v.fragmentType, Status: status, Data: data, Reason: reason}
}

func errorFragment(v Verifier, code ReasonCode, message string) Fragment {
	return Fragment{Name: v.Name(), Type: v.Type(), Status: StatusError, Reason: newReason(code, message)}
}

func errored(code ReasonCode, err error) (Status, any, *Reason) {
	return StatusError, nil, newReason(code, err.Error())
}
