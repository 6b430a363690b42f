package orchestrate

import (
	"context"
	"fmt"

	"github.com/rawblock/wallet-forensics/internal/catalog"
	"github.com/rawblock/wallet-forensics/internal/chain"
	"github.com/rawblock/wallet-forensics/internal/risk"
	"github.com/rawblock/wallet-forensics/pkg/models"
)

// RegressionCase is one fixed historical wallet replayed through the full
// pipeline: a transaction script for the fixture chain, the target, the
// taint seeds, and the assessment expectations.
type RegressionCase struct {
	Name         string
	Target       string
	Profile      string
	Transactions []*chain.RawTransaction
	Seeds        []models.TaintSeed
	Expect       risk.Expectation
}

const lamports = int64(1_000_000_000)

func bt(t int64) *int64 { return &t }

// RegressionCases returns the fixed historical suite the risk
// configuration is calibrated against. Each case is a complete wallet
// history, small enough to read, that pins one behaviour the engine must
// keep: hack proceeds cashing out through an exchange, a mixer-style
// fan-out cluster, and a legitimate user that must never be flagged.
func RegressionCases() []RegressionCase {
	hack := []*chain.RawTransaction{
		{
			Signature:    "hack-drain",
			Slot:         10,
			BlockTime:    bt(1_700_000_000),
			Success:      true,
			AccountKeys:  []string{"attacker-wallet", "mule-wallet"},
			PreBalances:  []int64{150 * lamports, 0},
			PostBalances: []int64{50 * lamports, 100 * lamports},
		},
		{
			Signature:    "hack-cashout",
			Slot:         20,
			BlockTime:    bt(1_700_002_000),
			Success:      true,
			AccountKeys:  []string{"mule-wallet", "binance-hot-1"},
			PreBalances:  []int64{100 * lamports, 0},
			PostBalances: []int64{40 * lamports, 60 * lamports},
		},
	}

	// Ten equal payouts from one hub inside a single five-minute window:
	// enough for the fee-payer and fan-out extractors to bind the hub and
	// its recipients into one cluster.
	var mixer []*chain.RawTransaction
	for i := int64(0); i < 10; i++ {
		mixer = append(mixer, &chain.RawTransaction{
			Signature:    fmt.Sprintf("mixer-payout-%d", i),
			Slot:         100 + i,
			BlockTime:    bt(1_700_000_100 + 10*i),
			Success:      true,
			Programs:     []string{"mixer-program-v1"},
			AccountKeys:  []string{"mixer-hub", fmt.Sprintf("mixer-out-%d", i)},
			PreBalances:  []int64{(100 - 10*i) * lamports, 0},
			PostBalances: []int64{(90 - 10*i) * lamports, 10 * lamports},
		})
	}

	legit := []*chain.RawTransaction{
		{
			Signature:    "legit-funding",
			Slot:         200,
			BlockTime:    bt(1_700_010_000),
			Success:      true,
			AccountKeys:  []string{"payroll-treasury", "everyday-user"},
			PreBalances:  []int64{600 * lamports, 0},
			PostBalances: []int64{594 * lamports, 6 * lamports},
		},
		{
			Signature:    "legit-purchase-a",
			Slot:         210,
			BlockTime:    bt(1_700_020_000),
			Success:      true,
			AccountKeys:  []string{"everyday-user", "merchant-a"},
			PreBalances:  []int64{6 * lamports, 0},
			PostBalances: []int64{4 * lamports, 2 * lamports},
		},
		{
			Signature:    "legit-purchase-b",
			Slot:         220,
			BlockTime:    bt(1_700_030_000),
			Success:      true,
			AccountKeys:  []string{"everyday-user", "merchant-b"},
			PreBalances:  []int64{4 * lamports, 0},
			PostBalances: []int64{1 * lamports, 3 * lamports},
		},
	}

	return []RegressionCase{
		{
			Name:         "hack proceeds cash out via exchange",
			Target:       "attacker-wallet",
			Profile:      risk.ProfileTaintFocused,
			Transactions: hack,
			Seeds: []models.TaintSeed{
				{Address: "attacker-wallet", IncidentID: "inc-hack-2024", InitialTaint: 1.0, Source: "incident-report"},
			},
			Expect: risk.Expectation{
				Name:               "hack proceeds cash out via exchange",
				ExpectedMinScore:   0.5,
				RequiredComponents: []risk.ComponentName{risk.ComponentTaintProximity},
			},
		},
		{
			Name:         "mixer-style fan-out hub",
			Target:       "mixer-hub",
			Profile:      risk.ProfileBehavioral,
			Transactions: mixer,
			Expect: risk.Expectation{
				Name:             "mixer-style fan-out hub",
				ExpectedMinScore: 0.3,
			},
		},
		{
			Name:         "legitimate DeFi user",
			Target:       "everyday-user",
			Profile:      risk.ProfileBalanced,
			Transactions: legit,
			Expect: risk.Expectation{
				Name:       "legitimate DeFi user",
				Legitimate: true,
			},
		},
	}
}

// RunRegression replays every case through the full pipeline against an
// in-memory fixture chain and summarises the outcomes. A case whose
// investigation errors outright is scored against a zero assessment, so a
// broken pipeline shows up as failed cases rather than a skipped suite.
func RunRegression(ctx context.Context, cases []RegressionCase) risk.Report {
	evaluated := make([]risk.Evaluated, 0, len(cases))
	for i, c := range cases {
		fixture := chain.NewFixtureClient()
		for _, tx := range c.Transactions {
			fixture.AddTransaction(tx)
		}
		orch := New(fixture, catalog.New(catalog.EmbeddedDefaults()), nil, nil)

		assessment := models.RiskAssessment{}
		report, err := orch.Investigate(ctx, fmt.Sprintf("regression-%d", i), c.Target, Options{
			Profile:    c.Profile,
			TaintSeeds: c.Seeds,
		})
		if err == nil {
			assessment = report.RiskAssessment
		}
		evaluated = append(evaluated, risk.Evaluated{Expectation: c.Expect, Assessment: assessment})
	}
	return risk.Summarize(evaluated)
}
