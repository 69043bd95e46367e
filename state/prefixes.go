package state

var (
	accountPrefix        = []byte("accounts/")
	pausePrefix          = []byte("system/pause/")
	curveStatePrefix     = []byte("curve/state/")
	tokenInfoPrefix      = []byte("launch/token/")
	tokenListKey         = []byte("launch/token/index")
	saltQueueKey         = []byte("launch/salts/queue")
	tokenBalancePrefix   = []byte("launch/balance/")
	tokenSupplyPrefix    = []byte("launch/supply/")
	spendingSeriesPrefix = []byte("spending/series/")
	spendingTokenPrefix  = []byte("spending/token/")
	pairPrefix           = []byte("amm/pair/")
)

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	key := append([]byte{}, prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}
