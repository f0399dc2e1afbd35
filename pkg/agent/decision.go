package agent

import (
	"fmt"

	"liyu1981.xyz/relay-sync-service/pkg/common"
	"liyu1981.xyz/relay-sync-service/pkg/models"
	"liyu1981.xyz/relay-sync-service/pkg/schedule"
)

type DecisionSource string

const (
	SourceLocal    DecisionSource = "local"
	SourceManual   DecisionSource = "manual"
	SourceFrozen   DecisionSource = "frozen"
	SourceSchedule DecisionSource = "schedule"
	SourceFallback DecisionSource = "fallback"
	SourceDefault  DecisionSource = "default"
)

// Decision is the outcome of one rule application. Physical is meaningless
// when Hold is set.
type Decision struct {
	Source   DecisionSource `json:"source"`
	Hold     bool           `json:"hold"`
	Physical bool           `json:"physical"`
	Slot     int            `json:"slot"`
	Price    float64        `json:"price"`
}

type decisionInput struct {
	hold     *bool
	policy   *models.Policy
	snapshot *models.Snapshot
	slot     int
	slotOK   bool
	hour     int
	hourOK   bool
	fallback []bool
	reversed bool
}

func decide(in decisionInput) Decision {
	if in.hold != nil {
		return Decision{Source: SourceLocal, Physical: *in.hold}
	}

	if p := in.policy; p != nil && p.ManualOverride {
		switch p.ManualState {
		case models.ManualStateOn:
			return Decision{Source: SourceManual, Physical: common.Physical(true, in.reversed)}
		case models.ManualStateOff:
			return Decision{Source: SourceManual, Physical: common.Physical(false, in.reversed)}
		default:
			return Decision{Source: SourceFrozen, Hold: true}
		}
	}

	if in.snapshot != nil && in.slotOK {
		return Decision{
			Source:   SourceSchedule,
			Physical: common.Physical(in.snapshot.Schedule[in.slot], in.reversed),
			Slot:     in.slot,
			Price:    in.snapshot.Prices[in.slot],
		}
	}

	if in.hourOK && len(in.fallback) == models.HoursPerDay {
		return Decision{Source: SourceFallback, Physical: common.Physical(in.fallback[in.hour], in.reversed)}
	}

	return Decision{Source: SourceDefault, Physical: common.Physical(false, in.reversed)}
}

// ValidateSnapshot accepts a snapshot only with a full schedule and a price
// array that is not mostly empty.
func ValidateSnapshot(s *models.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: empty snapshot", common.ErrValidation)
	}
	if len(s.Schedule) != models.SlotsPerDay {
		return fmt.Errorf("%w: schedule has %d entries", common.ErrValidation, len(s.Schedule))
	}
	if len(s.Prices) < models.SlotsPerDay {
		return fmt.Errorf("%w: %d prices", common.ErrValidation, len(s.Prices))
	}
	for i, p := range s.Prices {
		if p < 0 {
			return fmt.Errorf("%w: negative price at %d", common.ErrValidation, i)
		}
	}
	if !schedule.HasUsablePrices(s.Prices[:models.SlotsPerDay]) {
		return fmt.Errorf("%w: fewer than %d non-zero prices", common.ErrValidation, schedule.MinNonZeroPrices)
	}
	return nil
}
