package stake

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Stake account activation states surfaced to callers.
const (
	StateDelegated = "delegated"
	StateInactive  = "inactive"
)

// AccountSummary is a point-in-time view of one stake account owned by the
// wallet. Validator and ActivationEpoch are nil exactly when the account is
// not delegated.
type AccountSummary struct {
	Address         string  `json:"address"`
	Lamports        uint64  `json:"lamports"`
	SOL             float64 `json:"sol"`
	State           string  `json:"state"`
	Validator       *string `json:"validator,omitempty"`
	ActivationEpoch *uint64 `json:"activation_epoch,omitempty"`
}

// parsedStakeData mirrors the jsonParsed encoding of a stake account as
// returned by getProgramAccounts.
type parsedStakeData struct {
	Program string `json:"program"`
	Parsed  struct {
		Type string `json:"type"`
		Info struct {
			Stake *struct {
				Delegation *struct {
					Voter           string `json:"voter"`
					Stake           string `json:"stake"`
					ActivationEpoch string `json:"activationEpoch"`
				} `json:"delegation"`
			} `json:"stake"`
		} `json:"info"`
	} `json:"parsed"`
}

// summarize classifies one scanned account. An account is delegated iff its
// parsed data carries a delegation sub-field; everything else is inactive.
func summarize(address string, lamports uint64, sol float64, data []byte) (AccountSummary, error) {
	summary := AccountSummary{
		Address:  address,
		Lamports: lamports,
		SOL:      sol,
		State:    StateInactive,
	}

	var parsed parsedStakeData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return AccountSummary{}, fmt.Errorf("failed to parse stake account %s: %w", address, err)
	}

	stakeInfo := parsed.Parsed.Info.Stake
	if stakeInfo == nil || stakeInfo.Delegation == nil {
		return summary, nil
	}

	voter := stakeInfo.Delegation.Voter
	summary.State = StateDelegated
	summary.Validator = &voter

	epoch, err := strconv.ParseUint(stakeInfo.Delegation.ActivationEpoch, 10, 64)
	if err != nil {
		return AccountSummary{}, fmt.Errorf("failed to parse activation epoch for %s: %w", address, err)
	}
	summary.ActivationEpoch = &epoch

	return summary, nil
}
