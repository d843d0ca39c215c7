package supervisor

import (
	"encoding/hex"
	"strings"

	"github.com/paritytech/collator-sentinel/internal/errs"
	"github.com/paritytech/collator-sentinel/ss58"
	"github.com/paritytech/collator-sentinel/types"
)

// ss58DecodeOrHex accepts a configured collator address either as an SS58
// string or a 0x-prefixed 32-byte hex account id, matching how the two
// networks' config values are typically copied from a wallet UI versus a
// raw key file.
func ss58DecodeOrHex(s string) (types.Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") {
		raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil || len(raw) != 32 {
			return types.Address{}, errs.New(errs.KindInvalidConfig, "supervisor.ss58DecodeOrHex", err)
		}
		var addr types.Address
		copy(addr[:], raw)
		return addr, nil
	}
	return ss58.Decode(s)
}
