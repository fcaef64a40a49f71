package lifecycle

import "github.com/medisure/claims-api/model"

// CheckPaymentCreation gates creating a payment record: only a bank user,
// and only against an APPROVED claim.
func CheckPaymentCreation(claimStatus model.ClaimStatus, actorRole model.Role) error {
	if actorRole != model.RoleBank {
		return ErrForbidden
	}
	if claimStatus != model.ClaimApproved {
		return ErrInvalidState
	}
	return nil
}

// CheckPaymentResolution gates marking a payment COMPLETED or FAILED: bank
// only, PENDING payments only, and the target must be a terminal payment
// status.
func CheckPaymentResolution(paymentStatus model.PaymentStatus, actorRole model.Role, requested model.PaymentStatus) error {
	if requested != model.PaymentCompleted && requested != model.PaymentFailed {
		return ErrInvalidTransition
	}
	if paymentStatus != model.PaymentPending {
		return ErrInvalidTransition
	}
	if actorRole != model.RoleBank {
		return ErrForbidden
	}
	return nil
}

// CheckSettlement gates the explicit settle step that links a completed
// payment back to the claim: claim APPROVED, payment COMPLETED, bank actor.
// Settling moves the claim to PAID; it is the only path to PAID.
func CheckSettlement(claimStatus model.ClaimStatus, paymentStatus model.PaymentStatus, actorRole model.Role) error {
	if actorRole != model.RoleBank {
		return ErrForbidden
	}
	if claimStatus != model.ClaimApproved || paymentStatus != model.PaymentCompleted {
		return ErrInvalidState
	}
	return nil
}
