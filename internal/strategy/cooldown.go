package strategy

import "rangebot-go/internal/signal"

// CooldownState records the index of the most recent bar that produced a non-Hold final
// signal. Indices are relative to the series the state is threaded through.
type CooldownState struct {
	LastFire int
	Armed    bool
}

// Cooldown suppresses any signal within Bars positions after the previous fire.
type Cooldown struct {
	Bars int
}

// Step advances the state machine by one bar. It must be called with strictly increasing i.
func (c Cooldown) Step(st CooldownState, i int, raw signal.Side) (signal.Side, CooldownState) {
	if st.Armed && i <= st.LastFire+c.Bars {
		return signal.Hold, st
	}
	if raw != signal.Hold {
		st = CooldownState{LastFire: i, Armed: true}
	}
	return raw, st
}

// Apply runs a single forward pass over raw and returns the final series together with the
// state after the last bar, so a caller can continue the pass over a later chunk.
func (c Cooldown) Apply(raw []signal.Side, st CooldownState) ([]signal.Side, CooldownState) {
	out := make([]signal.Side, len(raw))
	for i, s := range raw {
		out[i], st = c.Step(st, i, s)
	}
	return out, st
}

// Shift re-bases the state for a follow-up chunk that starts n bars after the current one.
func (st CooldownState) Shift(n int) CooldownState {
	if st.Armed {
		st.LastFire -= n
	}
	return st
}
