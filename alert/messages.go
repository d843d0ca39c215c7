package alert

import (
	"fmt"
	"time"
)

// Messages renders the fixed alert copy for each kind collator-sentinel
// emits, generalized from the Slack-specific wording in
// _examples/original_source/src/slack.rs to the webhook/bot dual
// transport. Emoji-prefixed headers and "Chain:"/"Collator:" field layout
// are carried over from that source.

func DisconnectedBody(chainDisplay string) string {
	return fmt.Sprintf("🔌 *Disconnected*\nChain: %s\nAll configured endpoints refused connection.", chainDisplay)
}

func ReconnectedBody(chainDisplay string, downFor time.Duration) string {
	return fmt.Sprintf("✅ *Reconnected*\nChain: %s\nBack online after %s.", chainDisplay, FormatDuration(downFor))
}

func BlockGapBody(chainDisplay string, gap time.Duration) string {
	return fmt.Sprintf("⏱️ *No authored blocks*\nChain: %s\nNo block authored in the last %s.", chainDisplay, FormatDuration(gap))
}

func BlockGapResolvedBody(chainDisplay string) string {
	return fmt.Sprintf("✅ *Authoring resumed*\nChain: %s\nBlock gap cleared.", chainDisplay)
}

func StatusChangeBody(chainDisplay string, from, to string, blockNumber uint32, subscanURL string) string {
	msg := fmt.Sprintf("🚨 *Collator removed*\nChain: %s\n%s → %s at block %d", chainDisplay, from, to, blockNumber)
	if subscanURL != "" {
		msg += "\n" + subscanURL
	}
	return msg
}

func DemotedBody(chainDisplay string, deposit uint64, symbol string, decimals uint32) string {
	return fmt.Sprintf("⚠️ *Demoted from invulnerable*\nChain: %s\nNow a candidate with deposit %s %s.",
		chainDisplay, FormatBalance(deposit, decimals), symbol)
}

func InsufficientFundsBody(chainDisplay string, available, required uint64, symbol string, decimals uint32, mentions []string) string {
	return fmt.Sprintf("💸 *Insufficient funds*\nChain: %s\nAvailable: %s %s\nRequired: %s %s%s",
		chainDisplay,
		FormatBalance(available, decimals), symbol,
		FormatBalance(required, decimals), symbol,
		mentionSuffix(mentions))
}

func CannotCompeteBody(chainDisplay string, available, lowest, needed uint64, symbol string, decimals uint32, mentions []string) string {
	return fmt.Sprintf("📉 *Cannot compete for a candidate slot*\nChain: %s\nAvailable: %s %s\nLowest candidate bond: %s %s\nNeed %s %s more%s",
		chainDisplay,
		FormatBalance(available, decimals), symbol,
		FormatBalance(lowest, decimals), symbol,
		FormatBalance(needed, decimals), symbol,
		mentionSuffix(mentions))
}

func ManualActionBody(chainDisplay string, callData string, mentions []string) string {
	return fmt.Sprintf("🛠️ *Manual action required*\nChain: %s\nThis chain is read-only for delegated signing.\n%s%s",
		chainDisplay, callData, mentionSuffix(mentions))
}

func RegistrationSuccessBody(chainDisplay string, bond uint64, symbol string, decimals uint32, txHash string, mentions []string) string {
	return fmt.Sprintf("🎉 *Registered as candidate*\nChain: %s\nBond: %s %s\nTx: %s%s",
		chainDisplay, FormatBalance(bond, decimals), symbol, txHash, mentionSuffix(mentions))
}

func BondUpdateBody(chainDisplay string, oldBond, newBond uint64, symbol string, decimals uint32, txHash string, mentions []string) string {
	return fmt.Sprintf("📈 *Bond updated*\nChain: %s\n%s → %s %s\nTx: %s%s",
		chainDisplay, FormatBalance(oldBond, decimals), FormatBalance(newBond, decimals), symbol, txHash, mentionSuffix(mentions))
}

func ReconciliationErrorBody(chainDisplay string, err error, mentions []string) string {
	return fmt.Sprintf("❌ *Reconciliation error*\nChain: %s\n%v%s", chainDisplay, err, mentionSuffix(mentions))
}

func mentionSuffix(mentions []string) string {
	if len(mentions) == 0 {
		return ""
	}
	s := "\ncc:"
	for _, m := range mentions {
		s += " <@" + m + ">"
	}
	return s
}
