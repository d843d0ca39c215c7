package alert

import (
	"fmt"
	"strings"
	"time"
)

// ChainSlotInfo is a per-chain snapshot used for periodic summaries,
// grounded on _examples/original_source/src/monitor.rs's
// collect_slot_info / get_chain_slot_info.
type ChainSlotInfo struct {
	ChainName         string
	IsInvulnerable    bool
	IsCandidate       bool
	Position1Based    int
	HasPosition       bool
	MaxActive         uint32
	TotalCandidates   int
	YourBond          uint64
	HasYourBond       bool
	LowestBond        uint64
	HasLowestBond     bool
	DistanceFromLast  int64
	HasDistance       bool
	LastBlockAgo      time.Duration
	HasLastBlock      bool
	Symbol            string
	Decimals          uint32
}

// RenderSummary renders the periodic status summary from a set of
// ChainSlotInfo snapshots, flagging "outside active set" when
// position > max_active.
func RenderSummary(infos []ChainSlotInfo) string {
	var b strings.Builder
	b.WriteString("📊 *Collator status summary*\n")
	for _, info := range infos {
		b.WriteString("\n*" + info.ChainName + "*: ")
		switch {
		case info.IsInvulnerable:
			b.WriteString("invulnerable")
		case info.IsCandidate:
			b.WriteString("candidate")
			if info.HasPosition {
				b.WriteString(fmt.Sprintf(", position %d/%d", info.Position1Based, info.TotalCandidates))
				if info.MaxActive > 0 && uint32(info.Position1Based) > info.MaxActive {
					b.WriteString(" (outside active set)")
				}
			}
			if info.HasYourBond {
				b.WriteString(fmt.Sprintf(", bond %s %s", FormatBalance(info.YourBond, info.Decimals), info.Symbol))
			}
		default:
			b.WriteString("not a collator")
		}
		if info.HasLastBlock {
			b.WriteString(fmt.Sprintf(", last block %s ago", FormatDuration(info.LastBlockAgo)))
		}
	}
	return b.String()
}
