package casregistry

// Usage restricts which programs accept a given backend.
//
// Backends are linked at build time: a backend registers itself via init()
// and is enabled in a binary by importing its package (often blank).
type Usage uint8

const (
	// UsageCLI marks backends available to the agentchain CLI.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends available to long-running daemons (agentchain-casd).
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
