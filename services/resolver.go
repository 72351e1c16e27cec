package services

import (
	"fmt"
	"sort"

	"revenue-share-system/models"

	"github.com/shopspring/decimal"
)

// EligibleRecipient is one payee the caller declares for a sale.
type EligibleRecipient struct {
	UserID    string               `json:"user_id"`
	Role      models.RecipientRole `json:"role"`
	TierLevel int                  `json:"tier_level"`
}

/// ResolvedShare is the resolver's output for one recipient: the
// percentage that applied and the amount it computed to.
type ResolvedShare struct {
	RecipientID string               `json:"recipient_id"`
	Role        models.RecipientRole `json:"role"`
	TierLevel   int                  `json:"tier_level"`
	Percentage  decimal.Decimal      `json:"percentage"`
	Amount      decimal.Decimal      `json:"amount"`
}

var oneHundred = decimal.NewFromInt(100)

// cascadeStrategy turns resolved percentages into amounts.
type cascadeStrategy interface {
	Apply(gross decimal.Decimal, shares []ResolvedShare) ([]ResolvedShare, error)
}

// independentCascade applies every percentage to the original gross
// amount. Percentages summing past 100 are a misconfiguration and are
// rejected, never clamped.
type independentCascade struct{}

func (independentCascade) Apply(gross decimal.Decimal, shares []ResolvedShare) ([]ResolvedShare, error) {
	totalPct := decimal.Zero
	for i := range shares {
		totalPct = totalPct.Add(shares[i].Percentage)
		shares[i].Amount = gross.Mul(shares[i].Percentage).Div(oneHundred).Round(2)
	}
	if totalPct.GreaterThan(oneHundred) {
		return nil, fmt.Errorf("%w: percentages sum to %s", ErrOverAllocation, totalPct.String())
	}
	return shares, nil
}

// cascadingCascade walks recipients in ascending tier level; each takes
// its percentage of what the lower levels left over. Recipients on the
// same level consume the remainder sequentially in input order.
//
// The configured percentage is relative to the remainder, so it is
// rewritten to the effective share of the original amount before the
// shares leave the resolver — the ledger persists per-sale percentages
// that sum to at most 100, whatever the tier configuration says.
// Effective percentages round down so the rewrite can never push the
// sum past 100; the amount stays the authoritative figure.
type cascadingCascade struct{}

func (cascadingCascade) Apply(gross decimal.Decimal, shares []ResolvedShare) ([]ResolvedShare, error) {
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].TierLevel < shares[j].TierLevel
	})
	remaining := gross
	for i := range shares {
		amount := remaining.Mul(shares[i].Percentage).Div(oneHundred).Round(2)
		shares[i].Amount = amount
		shares[i].Percentage = amount.Mul(oneHundred).Div(gross).RoundDown(2)
		remaining = remaining.Sub(amount)
	}
	return shares, nil
}

func strategyFor(mode models.CascadeMode) cascadeStrategy {
	if mode == models.CascadeModeCascading {
		return cascadingCascade{}
	}
	return independentCascade{}
}

// ResolveShares is the distribution engine: given the active agreement,
// its tier overrides and the declared recipients of a sale, it returns
// the share each recipient receives. Pure over its inputs — no DB, no
// side effects.
//
// Override precedence: an active tier row for (user, role, tier level)
// wins; failing that, any active tier for (user, role); failing that,
// the agreement's default percentage for the role. The unallocated
// remainder (rounding residue or percentages summing under 100) stays
// with the platform — it is not redistributed.
func ResolveShares(agreement *models.Agreement, tiers []models.Tier, gross decimal.Decimal, recipients []EligibleRecipient) ([]ResolvedShare, error) {
	if agreement == nil || !agreement.IsActive {
		return nil, ErrNoActiveAgreement
	}
	if !gross.IsPositive() {
		return nil, fmt.Errorf("%w: sale amount must be positive, got %s", ErrValidation, gross.String())
	}

	shares := make([]ResolvedShare, 0, len(recipients))
	for _, r := range recipients {
		if r.UserID == "" {
			return nil, fmt.Errorf("%w: recipient user id is required", ErrValidation)
		}
		if !models.ValidRole(r.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, r.Role)
		}
		if r.TierLevel < 1 {
			r.TierLevel = 1
		}
		shares = append(shares, ResolvedShare{
			RecipientID: r.UserID,
			Role:        r.Role,
			TierLevel:   r.TierLevel,
			Percentage:  resolvePercentage(agreement, tiers, r),
		})
	}

	shares, err := strategyFor(agreement.CascadeMode).Apply(gross, shares)
	if err != nil {
		return nil, err
	}

	// Belt and braces: whatever the strategy did, payouts may never
	// exceed the sale itself, and the persisted percentages may never
	// sum past 100.
	total, totalPct := decimal.Zero, decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
		totalPct = totalPct.Add(s.Percentage)
	}
	if total.GreaterThan(gross) {
		return nil, fmt.Errorf("%w: computed %s against sale of %s", ErrOverAllocation, total.String(), gross.String())
	}
	if totalPct.GreaterThan(oneHundred) {
		return nil, fmt.Errorf("%w: effective percentages sum to %s", ErrOverAllocation, totalPct.String())
	}

	return shares, nil
}

func resolvePercentage(agreement *models.Agreement, tiers []models.Tier, r EligibleRecipient) decimal.Decimal {
	var roleMatch *models.Tier
	for i := range tiers {
		t := &tiers[i]
		if !t.IsActive || t.UserID != r.UserID || t.UserRole != r.Role {
			continue
		}
		if t.TierLevel == r.TierLevel {
			return t.Percentage
		}
		if roleMatch == nil {
			roleMatch = t
		}
	}
	if roleMatch != nil {
		return roleMatch.Percentage
	}
	return agreement.DefaultPercentage(r.Role)
}
