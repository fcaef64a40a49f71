package endpoint_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/medisure/claims-api/model"
)

// consultedAppointment walks an appointment all the way to CONSULTED.
func consultedAppointment(t *testing.T, r http.Handler, actors map[model.Role]actor) uint {
	t.Helper()
	apptID := bookAppointment(t, r, actors[model.RolePatient].Token, actors[model.RoleDoctor].ID)
	advanceAppointment(t, r, actors[model.RoleDoctor].Token, apptID, "ACCEPTED", "COMPLETED", "CONSULTED")
	return apptID
}

func TestCreateReport_AfterConsultation(t *testing.T) {
	r, db, actors := SetupFourRoleServer(t)

	apptID := consultedAppointment(t, r, actors)

	body := map[string]interface{}{
		"appointment_id":  apptID,
		"patient_id":      actors[model.RolePatient].ID,
		"title":           "Consultation summary",
		"diagnosis":       "Lumbar strain",
		"treatment":       "Physiotherapy",
		"medications":     "Ibuprofen 400mg",
		"recommendations": "Avoid heavy lifting",
		"follow_up_date":  "2024-05-01T09:00:00Z",
	}
	rr := doJSONRequest(t, r, "POST", "/report", body, actors[model.RoleDoctor].Token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rr.Code, rr.Body.String())
	}

	var report model.PatientReport
	if err := db.Where("appointment_id = ?", apptID).First(&report).Error; err != nil {
		t.Fatalf("report not persisted: %v", err)
	}
	if report.PatientID != actors[model.RolePatient].ID {
		t.Errorf("report not linked to the patient")
	}
	if report.ReportType != "CONSULTATION" {
		t.Errorf("report type should default to CONSULTATION, got %s", report.ReportType)
	}
	if report.FollowUpDate == nil {
		t.Error("follow_up_date was not recorded")
	}
}

func TestCreateReport_RequiresConsultedAppointment(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)

	// COMPLETED is not enough; the appointment must be CONSULTED.
	apptID := bookAppointment(t, r, actors[model.RolePatient].Token, actors[model.RoleDoctor].ID)
	advanceAppointment(t, r, actors[model.RoleDoctor].Token, apptID, "ACCEPTED", "COMPLETED")

	body := map[string]interface{}{
		"appointment_id": apptID,
		"patient_id":     actors[model.RolePatient].ID,
		"title":          "Too early",
	}
	rr := doJSONRequest(t, r, "POST", "/report", body, actors[model.RoleDoctor].Token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 before consultation, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCreateReport_WrongDoctorSees404(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)

	apptID := consultedAppointment(t, r, actors)

	otherDoctorToken, _ := CreateAndLoginUser(t, r, SignupCreds{
		Name: "Dr. Unrelated", Email: "unrelated@example.com",
		Password: "password123", Role: model.RoleDoctor,
	})

	body := map[string]interface{}{
		"appointment_id": apptID,
		"patient_id":     actors[model.RolePatient].ID,
		"title":          "Not my patient",
	}
	rr := doJSONRequest(t, r, "POST", "/report", body, otherDoctorToken)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unassigned doctor, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCreateReport_NonDoctorForbidden(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)

	apptID := consultedAppointment(t, r, actors)

	body := map[string]interface{}{
		"appointment_id": apptID,
		"patient_id":     actors[model.RolePatient].ID,
		"title":          "Self report",
	}
	rr := doJSONRequest(t, r, "POST", "/report", body, actors[model.RolePatient].Token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestListReports_ScopedByRole(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)

	apptID := consultedAppointment(t, r, actors)
	body := map[string]interface{}{
		"appointment_id": apptID,
		"patient_id":     actors[model.RolePatient].ID,
		"title":          "Visible report",
	}
	rr := doJSONRequest(t, r, "POST", "/report", body, actors[model.RoleDoctor].Token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("report creation failed: %d %s", rr.Code, rr.Body.String())
	}

	countReports := func(token string) int {
		rr := doJSONRequest(t, r, "GET", "/report", nil, token)
		if rr.Code != http.StatusOK {
			t.Fatalf("list failed: %d %s", rr.Code, rr.Body.String())
		}
		resp := ParseAPIResp(t, rr)
		var reports []model.PatientReport
		if err := json.Unmarshal(resp.Data, &reports); err != nil {
			t.Fatalf("parse reports failed: %v", err)
		}
		return len(reports)
	}

	if got := countReports(actors[model.RolePatient].Token); got != 1 {
		t.Errorf("patient should see their report, got %d", got)
	}
	if got := countReports(actors[model.RoleDoctor].Token); got != 1 {
		t.Errorf("doctor should see their report, got %d", got)
	}
	if got := countReports(actors[model.RoleInsurance].Token); got != 1 {
		t.Errorf("insurance should see all reports, got %d", got)
	}

	otherPatientToken, _ := CreateAndLoginUser(t, r, SignupCreds{
		Name: "No Reports", Email: "noreports@example.com",
		Password: "password123", Role: model.RolePatient,
	})
	if got := countReports(otherPatientToken); got != 0 {
		t.Errorf("unrelated patient should see no reports, got %d", got)
	}
}
