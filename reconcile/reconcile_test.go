package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeKindString(t *testing.T) {
	cases := map[OutcomeKind]string{
		Skipped:               "Skipped",
		AlreadyCollator:       "AlreadyCollator",
		UpdatedBond:           "UpdatedBond",
		RegisteredAsCandidate: "RegisteredAsCandidate",
		InsufficientFunds:     "InsufficientFunds",
		CannotCompete:         "CannotCompete",
		ManualActionRequired:  "ManualActionRequired",
		Error:                 "Error",
		OutcomeKind(99):       "Unknown",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
