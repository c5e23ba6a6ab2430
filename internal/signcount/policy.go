// Package signcount implements the sign-count reconciliation policy that
// runs after every successful WebAuthn assertion (C6). It is pure
// decision logic; callers apply the returned Outcome to their
// credential/device repositories inside one transaction.
package signcount

// Outcome tells the caller what to persist after an assertion.
type Outcome struct {
	// UpdateTo is the new sign count to store, or -1 if unchanged.
	UpdateTo int64
	// Regressed is true when the authenticator reported a sign count
	// lower than the one on file.
	Regressed bool
	// Revoke is true when Regressed fired under STRICT mode: the caller
	// must revoke the credential and deactivate its devices and fail the
	// operation with CREDENTIAL_COMPROMISED.
	Revoke bool
}

// Mode selects how a regression is handled.
type Mode string

const (
	ModeStrict  Mode = "STRICT"
	ModeLenient Mode = "LENIENT"
)

const noUpdate = -1

// Evaluate applies the reconciliation rule: a strictly greater count
// updates the stored value; an equal count (including both-zero, which
// some authenticators never increment) is a no-op; a lesser count is a
// regression, handled per mode.
func Evaluate(mode Mode, stored, reported uint32) Outcome {
	switch {
	case reported > stored:
		return Outcome{UpdateTo: int64(reported)}
	case reported == stored:
		return Outcome{UpdateTo: noUpdate}
	default:
		if mode == ModeLenient {
			return Outcome{UpdateTo: noUpdate, Regressed: true}
		}
		return Outcome{UpdateTo: noUpdate, Regressed: true, Revoke: true}
	}
}
