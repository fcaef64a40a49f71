package lifecycle

import "github.com/medisure/claims-api/model"

// claimRule names one allowed edge of the claim state machine together with
// the only role that may take it.
type claimRule struct {
	From model.ClaimStatus
	To   model.ClaimStatus
	Role model.Role
}

// claimRules is the full claim transition table. Anything not listed is an
// invalid transition; a listed edge requested by another role is forbidden.
// Note there are no self-transitions: repeating an already-applied
// transition is rejected rather than silently accepted.
var claimRules = []claimRule{
	{model.ClaimDraft, model.ClaimSubmitted, model.RolePatient},
	{model.ClaimSubmitted, model.ClaimUnderReview, model.RoleInsurance},
	{model.ClaimSubmitted, model.ClaimApproved, model.RoleInsurance},
	{model.ClaimSubmitted, model.ClaimRejected, model.RoleInsurance},
	{model.ClaimUnderReview, model.ClaimApproved, model.RoleInsurance},
	{model.ClaimUnderReview, model.ClaimRejected, model.RoleInsurance},
	{model.ClaimApproved, model.ClaimPaid, model.RoleBank},
}

// CheckClaimTransition decides whether actorRole may move a claim from
// current to requested. Ownership (the patient submitting their own claim)
// and the payment precondition on PAID are enforced by the caller; this is
// pure (state, role, request) decision logic.
func CheckClaimTransition(current model.ClaimStatus, actorRole model.Role, requested model.ClaimStatus) error {
	edgeExists := false
	for _, r := range claimRules {
		if r.From != current || r.To != requested {
			continue
		}
		edgeExists = true
		if r.Role == actorRole {
			return nil
		}
	}
	if edgeExists {
		return ErrForbidden
	}
	return ErrInvalidTransition
}

// ClaimTransitionsFrom lists the statuses reachable from current by the
// given role. Used by handlers to surface the allowed actions per claim.
func ClaimTransitionsFrom(current model.ClaimStatus, actorRole model.Role) []model.ClaimStatus {
	var out []model.ClaimStatus
	for _, r := range claimRules {
		if r.From == current && r.Role == actorRole {
			out = append(out, r.To)
		}
	}
	return out
}
