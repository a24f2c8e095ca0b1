package indicators

import (
	"sync"

	regexp "github.com/wasilibs/go-re2"
)

// Evidence categories. Weights reflect specificity: pool protocol evidence
// and encoded-payload execution are near-certain indicators, generic keyword
// hits are weak corroboration.
const (
	CategoryMinerSoftware = "Mining Software"
	CategoryMiningPool    = "Mining Pool"
	CategoryWallet        = "Wallet Address"
	CategoryMinerFlags    = "Miner Flags"
	CategoryBrowserMiner  = "Browser Miner"
	CategoryEncodedExec   = "Obfuscated Execution"
	CategoryObfuscation   = "Obfuscation"
	CategoryPersistence   = "Persistence Mechanism"
	CategoryProcessHiding = "Process Hiding"
	CategoryNetwork       = "Network Indicator"
	CategoryKeyword       = "Mining Keyword"
)

// Rule is one weighted detection pattern.
type Rule struct {
	Pattern  *regexp.Regexp
	Category string
	Weight   int
}

// Catalog is an ordered, immutable set of indicator rules.
type Catalog struct {
	rules []Rule
}

// New builds a catalog from an ordered rule list.
func New(rules []Rule) *Catalog {
	return &Catalog{rules: rules}
}

// Rules returns the rules in catalog order.
func (c *Catalog) Rules() []Rule {
	return c.rules
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog, compiled once per process.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New(builtinRules())
	})
	return defaultCatalog
}

// builtinRules compiles the static pattern tables. Patterns are matched
// case-insensitively except wallet shapes, whose base58/hex alphabets are
// case-defined.
func builtinRules() []Rule {
	out := make([]Rule, 0, 96)
	add := func(category string, weight int, patterns ...string) {
		for _, p := range patterns {
			out = append(out, Rule{
				Pattern:  regexp.MustCompile("(?i)" + p),
				Category: category,
				Weight:   weight,
			})
		}
	}
	addCaseSensitive := func(category string, weight int, patterns ...string) {
		for _, p := range patterns {
			out = append(out, Rule{
				Pattern:  regexp.MustCompile(p),
				Category: category,
				Weight:   weight,
			})
		}
	}

	add(CategoryMinerSoftware, 8,
		`\bxmrig\b`,
		`\bminerd\b`,
		`\bccminer\b`,
		`\bcpuminer\b`,
		`\bethminer\b`,
		`\bt-rex\b`,
		`\bnanominer\b`,
		`\bnbminer\b`,
		`\bteamredminer\b`,
		`\bgminer\b`,
		`\bphoenixminer\b`,
		`\blolminer\b`,
		`\bbminer\b`,
		`\bclaymore\b`,
		`\bexcavator\b`,
		`\bbfgminer\b`,
		`\bcgminer\b`,
		`\bsgminer\b`,
		`\bxmr-stak\b`,
		`\bcryptonight\b`,
		`\bminergate\b`,
		`\bnicehash\b`,
	)

	add(CategoryMiningPool, 9,
		`stratum\+(tcp|udp|ssl)://`,
		`pool\.(hash|mine|xmr|btc|eth)`,
		`(crypto|coin|xmr|monero|btc|eth|zcash)pool`,
		`(mining|miner)\.(pool|farm)`,
		`(us|eu|asia|sg|hk|jp)[0-9]*[-.]pool\.`,
		`\b(nanopool|ethermine|flypool|f2pool|antpool|slushpool|hiveon|miningpoolhub)\.(com|org|net|io|me)\b`,
		`(xmr|monero|eth|ethereum|btc|bitcoin|ltc|litecoin|zec|zcash)\.(pool|mine)\b`,
	)

	addCaseSensitive(CategoryWallet, 7,
		`\b(bc1|[13])[a-zA-HJ-NP-Z0-9]{25,39}\b`,       // Bitcoin
		`\b0x[a-fA-F0-9]{40}\b`,                        // Ethereum
		`\b4[0-9AB][1-9A-HJ-NP-Za-km-z]{93}\b`,         // Monero
		`\b[LM3][a-km-zA-HJ-NP-Z1-9]{26,33}\b`,         // Litecoin
		`\bt[13][a-zA-Z0-9]{33}\b`,                     // Zcash
		`\bX[1-9A-HJ-NP-Za-km-z]{33}\b`,                // Dash
	)

	add(CategoryMinerFlags, 6,
		`--algo=`,
		`--coin=`,
		`--pool=`,
		`--user=`,
		`--wallet=`,
		`--rig-id=`,
		`-o stratum`,
		`-u wallet`,
		`--donate-level=`,
		`--cpu-priority=`,
		`--cpu-affinity=`,
		`--max-cpu-usage=`,
		`--no-huge-pages`,
	)

	add(CategoryBrowserMiner, 8,
		`coin-?hive`,
		`crypto-?loot`,
		`\bjsecoin\b`,
		`\bcoinimp\b`,
		`\bwebminerpool\b`,
		`\bdeepminer\b`,
		`CoinHive\.Anonymous`,
	)

	add(CategoryEncodedExec, 9,
		`base64\s+(-d|--decode)[^|\n]*\|\s*(ba|z)?sh`,
		`echo\s+[A-Za-z0-9+/=]{16,}\s*\|\s*base64`,
		`curl\s+[^|\n]*\|\s*(ba)?sh`,
		`wget\s+[^|\n]*\|\s*(ba)?sh`,
		`eval\s*\(\s*atob\s*\(`,
		`new\s+Function\s*\(`,
		`String\.fromCharCode\s*\(`,
	)

	add(CategoryObfuscation, 4,
		`(\\x[0-9a-fA-F]{2}){4,}`,
		`var\s+_0x[a-f0-9]{4}`,
		`(%[0-9a-fA-F]{2}){4,}`,
		`chmod\s+\+x`,
		`[A-Za-z0-9+/]{40,}={0,2}`,
	)

	add(CategoryPersistence, 5,
		`@reboot`,
		`crontab\s+-`,
		`\*/[0-9]+ \* \* \* \*`,
		`systemctl\s+enable`,
		`chkconfig\s+on`,
		`update-rc\.d`,
		`rc\.local`,
		`schtasks\s+/create`,
		`CurrentVersion\\Run`,
		`Start Menu\\Programs\\Startup`,
	)

	add(CategoryProcessHiding, 5,
		`\bnohup\b`,
		`\bsetsid\b`,
		`\bdisown\b`,
		`screen\s+-d`,
		`tmux\s+new-session\s+-d`,
		`>\s*/dev/null\s+2>&1`,
		`nice\s+-n\s+1?[0-9]\b`,
	)

	add(CategoryNetwork, 3,
		`:(3333|4444|5555|7777|8888|9999|14444|45560)\b`,
		`\.onion\b`,
		`\b[a-z0-9]{16,}\.(xyz|top|pw|cc)\b`,
	)

	add(CategoryKeyword, 3,
		`mining\s+rig`,
		`hash\s?rate`,
		`\bmonero\b`,
		`cryptocurrency\s+miner`,
	)

	return out
}
