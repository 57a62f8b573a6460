package correlate

import "strings"

// Category is one entry of the fixed threat taxonomy.
type Category string

const (
	CategoryMalware          Category = "malware"
	CategoryIntrusion        Category = "intrusion"
	CategoryDataExfiltration Category = "data_exfiltration"
	CategoryReconnaissance   Category = "reconnaissance"
	CategoryLateralMovement  Category = "lateral_movement"
	CategoryPersistence      Category = "persistence"
	CategoryEvasion          Category = "evasion"
	CategoryMisconfiguration Category = "misconfiguration"
	CategoryUnknown          Category = "unknown"
)

// taxonomy maps each category to its keyword set. Declaration order breaks
// ties: the first category with the highest hit count wins.
var taxonomy = []struct {
	category Category
	keywords []string
}{
	{CategoryMalware, []string{
		"malware", "virus", "trojan", "ransomware", "cryptominer", "miner",
		"botnet", "payload", "dropper", "backdoor",
	}},
	{CategoryIntrusion, []string{
		"unauthorized", "intrusion", "brute force", "login", "ssh",
		"exploit", "injection", "shell spawned", "reverse shell",
	}},
	{CategoryDataExfiltration, []string{
		"exfiltration", "data transfer", "upload", "outbound", "leak",
		"sensitive file", "credentials read", "secret",
	}},
	{CategoryReconnaissance, []string{
		"scan", "probe", "enumeration", "discovery", "nmap", "fingerprint",
	}},
	{CategoryLateralMovement, []string{
		"lateral", "pivot", "internal connection", "smb", "rdp",
		"remote execution",
	}},
	{CategoryPersistence, []string{
		"persistence", "cron", "startup", "systemd", "registry",
		"scheduled task", "autostart",
	}},
	{CategoryEvasion, []string{
		"evasion", "defense", "disable", "tamper", "log deletion",
		"clear history", "obfuscat",
	}},
	{CategoryMisconfiguration, []string{
		"misconfiguration", "permission", "world-writable", "exposed",
		"default password", "privileged container", "anonymous",
	}},
}

// Classify assigns the alert text to the taxonomy category with the most
// keyword hits. Ties break in declaration order; no hits yields unknown.
func Classify(text string) Category {
	lower := strings.ToLower(text)

	best := CategoryUnknown
	bestHits := 0
	for _, entry := range taxonomy {
		hits := 0
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = entry.category
			bestHits = hits
		}
	}
	return best
}

// Phase is one step of a predicted attack chain.
type Phase struct {
	Name       string  `json:"name"`
	Likelihood float64 `json:"likelihood"`
}

// chainTransitions maps a detected category to its likely next phases with
// decreasing likelihood.
var chainTransitions = map[Category][]Phase{
	CategoryMalware:          {{"persistence", 0.7}, {"lateral_movement", 0.6}},
	CategoryIntrusion:        {{"reconnaissance", 0.7}, {"privilege_escalation", 0.6}},
	CategoryDataExfiltration: {{"evasion", 0.6}, {"persistence", 0.5}},
	CategoryReconnaissance:   {{"intrusion", 0.7}, {"lateral_movement", 0.5}},
	CategoryLateralMovement:  {{"data_exfiltration", 0.7}, {"persistence", 0.6}},
	CategoryPersistence:      {{"evasion", 0.7}, {"lateral_movement", 0.5}},
	CategoryEvasion:          {{"data_exfiltration", 0.6}, {"persistence", 0.5}},
	CategoryMisconfiguration: {{"intrusion", 0.6}, {"reconnaissance", 0.5}},
}

// PredictChain returns the attack chain for a category: the detection phase
// at likelihood 1.0 followed by up to two predicted phases. Categories with
// no transition entry yield a single-phase chain.
func PredictChain(cat Category) []Phase {
	chain := []Phase{{Name: string(cat), Likelihood: 1.0}}
	return append(chain, chainTransitions[cat]...)
}
