package payments

import "context"

// FeeTerms are the resolved commercial terms applied when splitting a charge
// or prorating a refund for one provider.
type FeeTerms struct {
	PlatformFeeBps int64
	GSTRateBps     int64
	ChargesGST     bool
}

// FeePolicy resolves fee terms per provider. Resolution happens once per
// operation and the result is threaded into Split explicitly; the calculator
// never looks terms up on its own.
type FeePolicy interface {
	Resolve(ctx context.Context, providerID string) (FeeTerms, error)
}

// StaticFeePolicy applies the same platform-wide terms to every provider.
// Plan- or provider-specific terms come from an upstream configuration
// collaborator and can replace this implementation behind the same interface.
type StaticFeePolicy struct {
	Terms FeeTerms
}

func (p *StaticFeePolicy) Resolve(_ context.Context, _ string) (FeeTerms, error) {
	return p.Terms, nil
}
