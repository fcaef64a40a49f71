package endpoint_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/medisure/claims-api/model"
)

// bookAppointment books an appointment as the patient with the given doctor.
func bookAppointment(t *testing.T, r http.Handler, patientToken string, doctorID uint) uint {
	t.Helper()
	body := map[string]interface{}{
		"doctor_id":    doctorID,
		"scheduled_at": "2024-04-01T10:00:00Z",
		"notes":        "Follow-up",
	}
	rr := doJSONRequest(t, r, "POST", "/appointment", body, patientToken)
	if rr.Code != http.StatusCreated {
		t.Fatalf("book appointment failed: %d %s", rr.Code, rr.Body.String())
	}
	resp := ParseAPIResp(t, rr)
	data := ParseDataToMap(t, resp.Data)
	return uint(data["ID"].(float64))
}

func appointmentPath(id uint) string {
	return "/appointment/" + strconv.FormatUint(uint64(id), 10)
}

// advanceAppointment moves an appointment through the given statuses as the
// doctor, failing the test if any step is rejected.
func advanceAppointment(t *testing.T, r http.Handler, doctorToken string, apptID uint, statuses ...string) {
	t.Helper()
	for _, s := range statuses {
		rr := doJSONRequest(t, r, "PATCH", appointmentPath(apptID), map[string]interface{}{"status": s}, doctorToken)
		if rr.Code != http.StatusOK {
			t.Fatalf("transition to %s failed: %d %s", s, rr.Code, rr.Body.String())
		}
	}
}

func TestCreateAppointment_StartsPending(t *testing.T) {
	r, db, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	apptID := bookAppointment(t, r, patient.Token, doctor.ID)

	var appt model.Appointment
	if err := db.First(&appt, apptID).Error; err != nil {
		t.Fatalf("appointment not persisted: %v", err)
	}
	if appt.Status != model.AppointmentPending {
		t.Errorf("expected PENDING, got %s", appt.Status)
	}
	if appt.PatientID != patient.ID || appt.DoctorID != doctor.ID {
		t.Error("appointment parties not recorded correctly")
	}
}

func TestCreateAppointment_RequiresKnownDoctor(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)

	// The insurance user exists but is not a doctor.
	body := map[string]interface{}{
		"doctor_id":    actors[model.RoleInsurance].ID,
		"scheduled_at": "2024-04-01T10:00:00Z",
	}
	rr := doJSONRequest(t, r, "POST", "/appointment", body, actors[model.RolePatient].Token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-doctor reference, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCreateAppointment_NonPatientForbidden(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)

	body := map[string]interface{}{
		"doctor_id":    actors[model.RoleDoctor].ID,
		"scheduled_at": "2024-04-01T10:00:00Z",
	}
	rr := doJSONRequest(t, r, "POST", "/appointment", body, actors[model.RoleDoctor].Token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAppointmentLifecycle_DoctorAdvances(t *testing.T) {
	r, db, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	apptID := bookAppointment(t, r, patient.Token, doctor.ID)
	advanceAppointment(t, r, doctor.Token, apptID, "ACCEPTED", "COMPLETED", "CONSULTED")

	var appt model.Appointment
	db.First(&appt, apptID)
	if appt.Status != model.AppointmentConsulted {
		t.Errorf("expected CONSULTED, got %s", appt.Status)
	}
}

func TestAppointmentTransition_PatientCannotAdvance(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	apptID := bookAppointment(t, r, patient.Token, doctor.ID)

	rr := doJSONRequest(t, r, "PATCH", appointmentPath(apptID),
		map[string]interface{}{"status": "ACCEPTED"}, patient.Token)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for patient advancing appointment, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAppointmentTransition_OtherDoctorSees404(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	apptID := bookAppointment(t, r, patient.Token, doctor.ID)

	otherDoctorToken, _ := CreateAndLoginUser(t, r, SignupCreds{
		Name: "Dr. Elsewhere", Email: "elsewhere@example.com",
		Password: "password123", Role: model.RoleDoctor,
	})

	// The appointment is outside the other doctor's scope, so it does not
	// exist for them.
	rr := doJSONRequest(t, r, "PATCH", appointmentPath(apptID),
		map[string]interface{}{"status": "ACCEPTED"}, otherDoctorToken)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other doctor, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAppointmentTransition_SkippingStagesRejected(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	apptID := bookAppointment(t, r, patient.Token, doctor.ID)

	// PENDING -> CONSULTED skips two stages.
	rr := doJSONRequest(t, r, "PATCH", appointmentPath(apptID),
		map[string]interface{}{"status": "CONSULTED"}, doctor.Token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAppointmentTransition_CancelledIsTerminal(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	apptID := bookAppointment(t, r, patient.Token, doctor.ID)
	advanceAppointment(t, r, doctor.Token, apptID, "CANCELLED")

	rr := doJSONRequest(t, r, "PATCH", appointmentPath(apptID),
		map[string]interface{}{"status": "ACCEPTED"}, doctor.Token)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 reviving a cancelled appointment, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestListAppointments_ScopedByRole(t *testing.T) {
	r, _, actors := SetupFourRoleServer(t)
	patient := actors[model.RolePatient]
	doctor := actors[model.RoleDoctor]

	bookAppointment(t, r, patient.Token, doctor.ID)
	bookAppointment(t, r, patient.Token, doctor.ID)

	otherPatientToken, _ := CreateAndLoginUser(t, r, SignupCreds{
		Name: "Second Pat", Email: "secondpat@example.com",
		Password: "password123", Role: model.RolePatient,
	})
	bookAppointment(t, r, otherPatientToken, doctor.ID)

	countAppointments := func(token string) int {
		rr := doJSONRequest(t, r, "GET", "/appointment", nil, token)
		if rr.Code != http.StatusOK {
			t.Fatalf("list failed: %d %s", rr.Code, rr.Body.String())
		}
		resp := ParseAPIResp(t, rr)
		var appts []model.Appointment
		if err := json.Unmarshal(resp.Data, &appts); err != nil {
			t.Fatalf("parse appointments failed: %v", err)
		}
		return len(appts)
	}

	if got := countAppointments(patient.Token); got != 2 {
		t.Errorf("patient should see 2 appointments, got %d", got)
	}
	if got := countAppointments(doctor.Token); got != 3 {
		t.Errorf("doctor should see all 3 of their appointments, got %d", got)
	}
	if got := countAppointments(otherPatientToken); got != 1 {
		t.Errorf("second patient should see 1 appointment, got %d", got)
	}
}
