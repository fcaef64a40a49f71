package endpoint

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/lifecycle"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
	"gorm.io/gorm"
)

type CreatePaymentRequest struct {
	ClaimID       uint    `json:"claim_id" binding:"required" example:"1"`
	Amount        float64 `json:"amount" binding:"required,gt=0" example:"225.00"`
	PaymentMethod string  `json:"payment_method" example:"Direct Deposit"`
	Notes         string  `json:"notes" example:"Scheduled for next batch run"`
}

type ResolvePaymentRequest struct {
	Status        string `json:"status" binding:"required" example:"COMPLETED"`
	TransactionID string `json:"transaction_id" example:"TXN-001"`
	Notes         string `json:"notes" example:"Processed by nightly batch"`
}

// ListPayments godoc
// @Summary      List payments (bank only)
// @Tags         Payments
// @Produce      json
// @Security     SessionToken
// @Param        status query string false "Filter by payment status"
// @Param        limit query int false "Limit number of results (default 50, max 100)"
// @Success      200 {object} util.APIResponse "Payments retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a bank user"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /payment [get]
func ListPayments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	query := db.Model(&model.Payment{})
	if status := c.Query("status"); status != "" {
		if !model.ValidPaymentStatus(status) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid payment status filter", Err: fmt.Errorf("unknown status %q", status)})
			return
		}
		query = query.Where("status = ?", status)
	}

	limit := parsePositiveInt(c.Query("limit"), 50, 100)

	var payments []model.Payment
	if err := query.Order("created_at DESC").Limit(limit).Find(&payments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve payments", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Payments retrieved", Data: payments})
}

// CreatePayment godoc
// @Summary      Create a payment (bank only)
// @Description  Create a PENDING payment against an APPROVED claim. A claim holds at most one active (PENDING or COMPLETED) payment.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreatePaymentRequest true "Payment details"
// @Success      201 {object} util.APIResponse "Payment created"
// @Failure      400 {object} util.APIResponse "Claim not approved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a bank user"
// @Failure      404 {object} util.APIResponse "Claim not found"
// @Failure      409 {object} util.APIResponse "Active payment already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /payment [post]
func CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	var claim model.Claim
	err := db.First(&claim, req.ClaimID).Error
	if err == gorm.ErrRecordNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Claim not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve claim", Err: err})
		return
	}

	if err := lifecycle.CheckPaymentCreation(claim.Status, role); err != nil {
		respondLifecycleError(c, err, "Payments can only be created for approved claims")
		return
	}

	// One active payment per claim: a PENDING or COMPLETED record blocks a
	// new attempt; a FAILED one does not.
	var active int64
	if err := db.Model(&model.Payment{}).
		Where("claim_id = ? AND status IN ?", claim.ID, []model.PaymentStatus{model.PaymentPending, model.PaymentCompleted}).
		Count(&active).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check existing payments", Err: err})
		return
	}
	if active > 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Claim already has an active payment", Err: fmt.Errorf("active payment exists for claim %d", claim.ID)})
		return
	}

	payment := model.Payment{
		ClaimID:       claim.ID,
		Amount:        req.Amount,
		Status:        model.PaymentPending,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		ProcessedBy:   userID,
	}
	if err := db.Create(&payment).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create payment", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Payment created", Data: payment})
}

// ResolvePayment godoc
// @Summary      Resolve a payment (bank only)
// @Description  Mark a PENDING payment COMPLETED or FAILED. A completed payment makes the claim eligible for settlement.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Payment ID"
// @Param        request body ResolvePaymentRequest true "Resolution"
// @Success      200 {object} util.APIResponse "Payment resolved"
// @Failure      400 {object} util.APIResponse "Invalid resolution"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a bank user"
// @Failure      404 {object} util.APIResponse "Payment not found"
// @Failure      409 {object} util.APIResponse "Concurrent resolution lost"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /payment/{id} [patch]
func ResolvePayment(c *gin.Context) {
	paymentID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	var req ResolvePaymentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if !model.ValidPaymentStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid payment status", Err: fmt.Errorf("unknown status %q", req.Status)})
		return
	}
	requested := model.PaymentStatus(req.Status)

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	var payment model.Payment
	err = db.First(&payment, paymentID).Error
	if err == gorm.ErrRecordNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Payment not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve payment", Err: err})
		return
	}

	if err := lifecycle.CheckPaymentResolution(payment.Status, role, requested); err != nil {
		respondLifecycleError(c, err, fmt.Sprintf("Cannot move payment from %s to %s", payment.Status, requested))
		return
	}

	transactionID := req.TransactionID
	if requested == model.PaymentCompleted && transactionID == "" {
		transactionID = fmt.Sprintf("TXN-%d-%d", payment.ID, time.Now().Unix())
	}

	updates := map[string]interface{}{"status": requested, "transaction_id": transactionID}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	res := db.Model(&model.Payment{}).
		Where("id = ? AND status = ?", payment.ID, model.PaymentPending).
		Updates(updates)
	if res.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update payment", Err: res.Error})
		return
	}
	if res.RowsAffected == 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Payment was modified concurrently, retry", Err: fmt.Errorf("status changed since read")})
		return
	}

	util.LogStatusTransition(userID, c.ClientIP(), "payment", payment.ID, string(payment.Status), string(requested))

	var updated model.Payment
	if err := db.First(&updated, payment.ID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reload payment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Payment resolved", Data: updated})
}
