package endpoint

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/lifecycle"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
)

type CreateReportRequest struct {
	AppointmentID   uint   `json:"appointment_id" binding:"required" example:"1"`
	PatientID       uint   `json:"patient_id" binding:"required" example:"1"`
	ReportType      string `json:"report_type" example:"CONSULTATION"`
	Title           string `json:"title" binding:"required" example:"Consultation summary"`
	Description     string `json:"description" example:"Patient presented with lower back pain"`
	Diagnosis       string `json:"diagnosis" example:"Lumbar strain"`
	Treatment       string `json:"treatment" example:"Physiotherapy, 6 sessions"`
	Medications     string `json:"medications" example:"Ibuprofen 400mg"`
	Recommendations string `json:"recommendations" example:"Avoid heavy lifting for 4 weeks"`
	DocumentURL     string `json:"document_url" example:"https://bucket.s3.amazonaws.com/medical-reports/1/abc.pdf"`
	FollowUpDate    string `json:"follow_up_date" example:"2024-05-01T09:00:00Z"`
}

// CreateReport godoc
// @Summary      Write a consultation report (doctor only)
// @Description  The assigned doctor writes a report once the appointment has reached CONSULTED.
// @Tags         Reports
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateReportRequest true "Report details"
// @Success      201 {object} util.APIResponse "Report created"
// @Failure      400 {object} util.APIResponse "Appointment not consulted"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a doctor"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /report [post]
func CreateReport(c *gin.Context) {
	var req CreateReportRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	var followUp *time.Time
	if req.FollowUpDate != "" {
		t, err := time.Parse(time.RFC3339, req.FollowUpDate)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "follow_up_date must be an RFC3339 timestamp", Err: err})
			return
		}
		followUp = &t
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, _, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	appt, ok := fetchDoctorAppointment(c, db, req.AppointmentID, userID, req.PatientID)
	if !ok {
		return
	}

	if err := lifecycle.CheckReportCreation(appt.Status); err != nil {
		respondLifecycleError(c, err, "Reports can only be written for a consulted appointment")
		return
	}

	reportType := req.ReportType
	if reportType == "" {
		reportType = "CONSULTATION"
	}

	report := model.PatientReport{
		PatientID:       appt.PatientID,
		AppointmentID:   appt.ID,
		ReportType:      reportType,
		Title:           req.Title,
		Description:     req.Description,
		Diagnosis:       req.Diagnosis,
		Treatment:       req.Treatment,
		Medications:     req.Medications,
		Recommendations: req.Recommendations,
		DocumentURL:     req.DocumentURL,
		FollowUpDate:    followUp,
	}
	if err := db.Create(&report).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create report", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Report created", Data: report})
}

// ListReports godoc
// @Summary      List reports
// @Description  Patients see their own reports, doctors those of their appointments; insurance and bank see all.
// @Tags         Reports
// @Produce      json
// @Security     SessionToken
// @Param        patient_id query int false "Filter by patient (insurance/bank only)"
// @Success      200 {object} util.APIResponse "Reports retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /report [get]
func ListReports(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	query := db.Model(&model.PatientReport{})
	switch role {
	case model.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case model.RoleDoctor:
		query = query.Where("appointment_id IN (?)",
			appointmentScope(db, userID, role).Select("id"))
	default:
		if patientStr := c.Query("patient_id"); patientStr != "" {
			patientID, err := strconv.ParseUint(patientStr, 10, 32)
			if err != nil || patientID == 0 {
				util.CallUserError(c, util.APIErrorParams{Msg: "patient_id must be a positive integer", Err: fmt.Errorf("invalid patient_id")})
				return
			}
			query = query.Where("patient_id = ?", patientID)
		}
	}

	var reports []model.PatientReport
	if err := query.Order("created_at DESC").Find(&reports).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve reports", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Reports retrieved", Data: reports})
}
