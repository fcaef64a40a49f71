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

type CreateClaimRequest struct {
	DoctorID      *uint   `json:"doctor_id" example:"2"`
	Diagnosis     string  `json:"diagnosis" binding:"required" example:"Annual Health Checkup"`
	TreatmentDate string  `json:"treatment_date" binding:"required" example:"2024-01-15"`
	ClaimAmount   float64 `json:"claim_amount" binding:"required,gt=0" example:"250.00"`
	Description   string  `json:"description" example:"Routine physical examination"`
}

type UpdateClaimStatusRequest struct {
	Status         string   `json:"status" binding:"required" example:"SUBMITTED"`
	ApprovedAmount *float64 `json:"approved_amount" example:"225.00"`
}

// claimScope narrows a claim query to the rows the actor may see.
// Patients see their own claims, doctors the claims naming them, and
// insurance/bank actors see everything. Rows outside the scope behave as if
// they do not exist, so lookups return 404 rather than 403.
func claimScope(db *gorm.DB, userID uint, role model.Role) *gorm.DB {
	query := db.Model(&model.Claim{})
	switch role {
	case model.RolePatient:
		return query.Where("patient_id = ?", userID)
	case model.RoleDoctor:
		return query.Where("doctor_id = ?", userID)
	default:
		return query
	}
}

// CreateClaim godoc
// @Summary      Create a claim draft
// @Description  Patient creates a new claim in DRAFT status. A unique claim number is allocated.
// @Tags         Claims
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateClaimRequest true "Claim details"
// @Success      201 {object} util.APIResponse "Claim created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a patient"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /claim [post]
func CreateClaim(c *gin.Context) {
	var req CreateClaimRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	treatmentDate, err := time.Parse("2006-01-02", req.TreatmentDate)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "treatment_date must be in YYYY-MM-DD format", Err: err})
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
	if role != model.RolePatient {
		util.CallForbidden(c, util.APIErrorParams{Msg: "Only patients can create claims", Err: fmt.Errorf("role %s cannot create claims", role)})
		return
	}

	if req.DoctorID != nil {
		if !doctorExists(c, db, *req.DoctorID) {
			return
		}
	}

	var claim model.Claim
	err = db.Transaction(func(tx *gorm.DB) error {
		claimNumber, err := model.NextClaimNumber(tx, time.Now())
		if err != nil {
			return err
		}
		claim = model.Claim{
			ClaimNumber:   claimNumber,
			PatientID:     userID,
			DoctorID:      req.DoctorID,
			Diagnosis:     req.Diagnosis,
			TreatmentDate: treatmentDate,
			ClaimAmount:   req.ClaimAmount,
			Description:   req.Description,
			Status:        model.ClaimDraft,
		}
		return tx.Create(&claim).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create claim", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Claim created", Data: claim})
}

// ListClaims godoc
// @Summary      List claims
// @Description  List claims visible to the caller, optionally filtered by status.
// @Tags         Claims
// @Produce      json
// @Security     SessionToken
// @Param        status query string false "Filter by claim status"
// @Param        limit query int false "Limit number of results (default 50, max 100)"
// @Success      200 {object} util.APIResponse "Claims retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /claim [get]
func ListClaims(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	query := claimScope(db, userID, role)
	if status := c.Query("status"); status != "" {
		if !model.ValidClaimStatus(status) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid claim status filter", Err: fmt.Errorf("unknown status %q", status)})
			return
		}
		query = query.Where("status = ?", status)
	}

	limit := parsePositiveInt(c.Query("limit"), 50, 100)

	var claims []model.Claim
	if err := query.Order("created_at DESC").Limit(limit).Find(&claims).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve claims", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Claims retrieved", Data: claims})
}

// GetClaim godoc
// @Summary      Get claim detail
// @Description  Retrieve one claim. Claims outside the caller's visibility return 404.
// @Tags         Claims
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Claim ID"
// @Success      200 {object} util.APIResponse "Claim retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Claim not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /claim/{id} [get]
func GetClaim(c *gin.Context) {
	claimID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
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

	claim, ok := fetchVisibleClaim(c, db, claimID, userID, role)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Claim retrieved", Data: gin.H{
		"claim":       claim,
		"transitions": lifecycle.ClaimTransitionsFrom(claim.Status, role),
	}})
}

// UpdateClaimStatus godoc
// @Summary      Transition a claim
// @Description  Apply a status transition through the lifecycle engine. APPROVED may carry approved_amount; omitted, the full claim amount is approved. PAID requires a completed payment and is normally reached via the settle endpoint.
// @Tags         Claims
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Claim ID"
// @Param        request body UpdateClaimStatusRequest true "Requested status"
// @Success      200 {object} util.APIResponse "Claim updated"
// @Failure      400 {object} util.APIResponse "Invalid transition or state"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Role not allowed"
// @Failure      404 {object} util.APIResponse "Claim not found"
// @Failure      409 {object} util.APIResponse "Concurrent transition lost"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /claim/{id} [patch]
func UpdateClaimStatus(c *gin.Context) {
	claimID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	var req UpdateClaimStatusRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if !model.ValidClaimStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid claim status", Err: fmt.Errorf("unknown status %q", req.Status)})
		return
	}
	requested := model.ClaimStatus(req.Status)

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	claim, ok := fetchVisibleClaim(c, db, claimID, userID, role)
	if !ok {
		return
	}

	if err := lifecycle.CheckClaimTransition(claim.Status, role, requested); err != nil {
		respondLifecycleError(c, err, fmt.Sprintf("Cannot move claim from %s to %s", claim.Status, requested))
		return
	}

	// Submission is owner-only even though visibility scoping already
	// restricts patients to their own claims.
	if requested == model.ClaimSubmitted && claim.PatientID != userID {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Claim not found", Err: fmt.Errorf("claim does not belong to caller")})
		return
	}

	updates := map[string]interface{}{"status": requested}
	now := time.Now()

	switch requested {
	case model.ClaimSubmitted:
		updates["submitted_at"] = now
	case model.ClaimApproved:
		amount := claim.ClaimAmount
		if req.ApprovedAmount != nil {
			if *req.ApprovedAmount <= 0 || *req.ApprovedAmount > claim.ClaimAmount {
				util.CallUserError(c, util.APIErrorParams{Msg: "approved_amount must be positive and not exceed the claim amount", Err: fmt.Errorf("invalid approved amount")})
				return
			}
			amount = *req.ApprovedAmount
		}
		updates["approved_amount"] = amount
		updates["approved_at"] = now
	case model.ClaimRejected:
		updates["approved_amount"] = nil
	case model.ClaimPaid:
		// PAID additionally requires a completed payment; same precondition
		// as the settle endpoint.
		payment, err := completedPaymentForClaim(db, claim.ID)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check payments", Err: err})
			return
		}
		if payment == nil {
			respondLifecycleError(c, lifecycle.ErrInvalidState, "Claim has no completed payment")
			return
		}
	}

	if !applyClaimTransition(c, db, claim, updates) {
		return
	}

	util.LogStatusTransition(userID, c.ClientIP(), "claim", claim.ID, string(claim.Status), string(requested))

	var updated model.Claim
	if err := db.First(&updated, claim.ID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reload claim", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Claim updated", Data: updated})
}

// SettleClaim godoc
// @Summary      Settle an approved claim
// @Description  Bank links a completed payment back to the claim, moving it APPROVED -> PAID. This is the only designed path to PAID.
// @Tags         Claims
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Claim ID"
// @Success      200 {object} util.APIResponse "Claim settled"
// @Failure      400 {object} util.APIResponse "Preconditions not met"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a bank user"
// @Failure      404 {object} util.APIResponse "Claim not found"
// @Failure      409 {object} util.APIResponse "Concurrent transition lost"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /claim/{id}/settle [post]
func SettleClaim(c *gin.Context) {
	claimID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
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

	claim, ok := fetchVisibleClaim(c, db, claimID, userID, role)
	if !ok {
		return
	}

	payment, err := completedPaymentForClaim(db, claim.ID)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check payments", Err: err})
		return
	}
	paymentStatus := model.PaymentStatus("")
	if payment != nil {
		paymentStatus = payment.Status
	}

	if err := lifecycle.CheckSettlement(claim.Status, paymentStatus, role); err != nil {
		respondLifecycleError(c, err, "Claim cannot be settled")
		return
	}

	if !applyClaimTransition(c, db, claim, map[string]interface{}{"status": model.ClaimPaid}) {
		return
	}

	util.LogStatusTransition(userID, c.ClientIP(), "claim", claim.ID, string(claim.Status), string(model.ClaimPaid))

	var updated model.Claim
	if err := db.First(&updated, claim.ID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reload claim", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Claim settled", Data: updated})
}

// fetchVisibleClaim loads a claim within the actor's visibility scope,
// responding 404 both when the claim is absent and when it belongs to
// someone else.
func fetchVisibleClaim(c *gin.Context, db *gorm.DB, claimID, userID uint, role model.Role) (*model.Claim, bool) {
	var claim model.Claim
	err := claimScope(db, userID, role).Where("claims.id = ?", claimID).First(&claim).Error
	if err == gorm.ErrRecordNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Claim not found", Err: err})
		return nil, false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve claim", Err: err})
		return nil, false
	}
	return &claim, true
}

// applyClaimTransition writes the transition with a guard on the previous
// status so two concurrent transitions cannot both win. A lost race responds
// with 409.
func applyClaimTransition(c *gin.Context, db *gorm.DB, claim *model.Claim, updates map[string]interface{}) bool {
	res := db.Model(&model.Claim{}).
		Where("id = ? AND status = ?", claim.ID, claim.Status).
		Updates(updates)
	if res.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update claim", Err: res.Error})
		return false
	}
	if res.RowsAffected == 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Claim was modified concurrently, retry", Err: fmt.Errorf("status changed since read")})
		return false
	}
	return true
}

// completedPaymentForClaim returns the claim's COMPLETED payment, if any.
func completedPaymentForClaim(db *gorm.DB, claimID uint) (*model.Payment, error) {
	var payment model.Payment
	err := db.Where("claim_id = ? AND status = ?", claimID, model.PaymentCompleted).First(&payment).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// doctorExists verifies the referenced doctor id names a DOCTOR user.
func doctorExists(c *gin.Context, db *gorm.DB, doctorID uint) bool {
	var doctor model.User
	err := db.Where("id = ? AND role = ?", doctorID, model.RoleDoctor).First(&doctor).Error
	if err == gorm.ErrRecordNotFound {
		util.CallUserError(c, util.APIErrorParams{Msg: "Referenced doctor does not exist", Err: fmt.Errorf("doctor %d not found", doctorID)})
		return false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate doctor", Err: err})
		return false
	}
	return true
}
