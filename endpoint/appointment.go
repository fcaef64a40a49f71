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

type CreateAppointmentRequest struct {
	DoctorID    uint   `json:"doctor_id" binding:"required" example:"2"`
	ScheduledAt string `json:"scheduled_at" binding:"required" example:"2024-04-01T10:00:00Z"`
	Notes       string `json:"notes" example:"Follow-up for back pain"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" binding:"required" example:"ACCEPTED"`
	Notes  string `json:"notes" example:"Bring previous lab results"`
}

// appointmentScope narrows an appointment query to the rows the actor may
// see, mirroring claimScope.
func appointmentScope(db *gorm.DB, userID uint, role model.Role) *gorm.DB {
	query := db.Model(&model.Appointment{})
	switch role {
	case model.RolePatient:
		return query.Where("patient_id = ?", userID)
	case model.RoleDoctor:
		return query.Where("doctor_id = ?", userID)
	default:
		return query
	}
}

// CreateAppointment godoc
// @Summary      Book an appointment
// @Description  Patient books an appointment with a doctor; it starts in PENDING.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateAppointmentRequest true "Appointment details"
// @Success      201 {object} util.APIResponse "Appointment created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a patient"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointment [post]
func CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "scheduled_at must be an RFC3339 timestamp", Err: err})
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
		util.CallForbidden(c, util.APIErrorParams{Msg: "Only patients can book appointments", Err: fmt.Errorf("role %s cannot book appointments", role)})
		return
	}

	if !doctorExists(c, db, req.DoctorID) {
		return
	}

	appt := model.Appointment{
		PatientID:   userID,
		DoctorID:    req.DoctorID,
		ScheduledAt: scheduledAt,
		Status:      model.AppointmentPending,
		Notes:       req.Notes,
	}
	if err := db.Create(&appt).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create appointment", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Appointment created", Data: appt})
}

// ListAppointments godoc
// @Summary      List appointments
// @Description  List appointments visible to the caller, optionally filtered by status.
// @Tags         Appointments
// @Produce      json
// @Security     SessionToken
// @Param        status query string false "Filter by appointment status"
// @Param        limit query int false "Limit number of results (default 50, max 100)"
// @Success      200 {object} util.APIResponse "Appointments retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointment [get]
func ListAppointments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	query := appointmentScope(db, userID, role)
	if status := c.Query("status"); status != "" {
		if !model.ValidAppointmentStatus(status) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid appointment status filter", Err: fmt.Errorf("unknown status %q", status)})
			return
		}
		query = query.Where("status = ?", status)
	}

	limit := parsePositiveInt(c.Query("limit"), 50, 100)

	var appointments []model.Appointment
	if err := query.Order("scheduled_at DESC").Limit(limit).Find(&appointments).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointments retrieved", Data: appointments})
}

// UpdateAppointmentStatus godoc
// @Summary      Advance an appointment
// @Description  The assigned doctor advances the appointment through PENDING -> ACCEPTED/CANCELLED -> COMPLETED -> CONSULTED.
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Param        request body UpdateAppointmentStatusRequest true "Requested status"
// @Success      200 {object} util.APIResponse "Appointment updated"
// @Failure      400 {object} util.APIResponse "Invalid transition"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not the assigned doctor"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      409 {object} util.APIResponse "Concurrent transition lost"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointment/{id} [patch]
func UpdateAppointmentStatus(c *gin.Context) {
	apptID, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	var req UpdateAppointmentStatusRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if !model.ValidAppointmentStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid appointment status", Err: fmt.Errorf("unknown status %q", req.Status)})
		return
	}
	requested := model.AppointmentStatus(req.Status)

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	appt, ok := fetchVisibleAppointment(c, db, apptID, userID, role)
	if !ok {
		return
	}

	if err := lifecycle.CheckAppointmentTransition(appt, userID, role, requested); err != nil {
		respondLifecycleError(c, err, fmt.Sprintf("Cannot move appointment from %s to %s", appt.Status, requested))
		return
	}

	updates := map[string]interface{}{"status": requested}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	res := db.Model(&model.Appointment{}).
		Where("id = ? AND status = ?", appt.ID, appt.Status).
		Updates(updates)
	if res.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update appointment", Err: res.Error})
		return
	}
	if res.RowsAffected == 0 {
		util.CallConflict(c, util.APIErrorParams{Msg: "Appointment was modified concurrently, retry", Err: fmt.Errorf("status changed since read")})
		return
	}

	util.LogStatusTransition(userID, c.ClientIP(), "appointment", appt.ID, string(appt.Status), string(requested))

	var updated model.Appointment
	if err := db.First(&updated, appt.ID).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to reload appointment", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Appointment updated", Data: updated})
}

// fetchVisibleAppointment loads an appointment within the actor's
// visibility scope; rows outside the scope return 404.
func fetchVisibleAppointment(c *gin.Context, db *gorm.DB, apptID, userID uint, role model.Role) (*model.Appointment, bool) {
	var appt model.Appointment
	err := appointmentScope(db, userID, role).Where("appointments.id = ?", apptID).First(&appt).Error
	if err == gorm.ErrRecordNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
		return nil, false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointment", Err: err})
		return nil, false
	}
	return &appt, true
}
