package domain

// LinkTarget says which participants the agent's input pipeline follows.
// The zero value is "single mode, nobody linked yet".
type LinkTarget struct {
	broadcast bool
	identity  Identity
}

func BroadcastTarget() LinkTarget { return LinkTarget{broadcast: true} }

func SingleTarget(id Identity) LinkTarget { return LinkTarget{identity: id} }

func (t LinkTarget) IsBroadcast() bool { return t.broadcast }

// Linked returns the followed identity, false when broadcast or unset.
func (t LinkTarget) Linked() (Identity, bool) {
	if t.broadcast || t.identity == "" {
		return "", false
	}
	return t.identity, true
}
