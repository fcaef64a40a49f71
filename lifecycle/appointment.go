package lifecycle

import "github.com/medisure/claims-api/model"

// appointmentEdges is the appointment transition table. Every transition is
// doctor-only, so the table carries no role column; the actor guard lives in
// CheckAppointmentTransition. CANCELLED and CONSULTED are terminal.
var appointmentEdges = map[model.AppointmentStatus][]model.AppointmentStatus{
	model.AppointmentPending:   {model.AppointmentAccepted, model.AppointmentCancelled},
	model.AppointmentAccepted:  {model.AppointmentCompleted},
	model.AppointmentCompleted: {model.AppointmentConsulted},
}

// CheckAppointmentTransition decides whether the actor may advance the
// appointment to the requested status. Only the assigned doctor may advance
// an appointment; patients create (PENDING) but never transition.
func CheckAppointmentTransition(appt *model.Appointment, actorID uint, actorRole model.Role, requested model.AppointmentStatus) error {
	reachable := false
	for _, to := range appointmentEdges[appt.Status] {
		if to == requested {
			reachable = true
			break
		}
	}
	if !reachable {
		return ErrInvalidTransition
	}
	if actorRole != model.RoleDoctor || actorID != appt.DoctorID {
		return ErrForbidden
	}
	return nil
}

// CheckDocumentUpload gates medical document uploads: only an ACCEPTED
// appointment may receive documents.
func CheckDocumentUpload(apptStatus model.AppointmentStatus) error {
	if apptStatus != model.AppointmentAccepted {
		return ErrInvalidState
	}
	return nil
}

// CheckReportCreation gates patient report creation, which requires the
// stricter CONSULTED stage rather than ACCEPTED.
func CheckReportCreation(apptStatus model.AppointmentStatus) error {
	if apptStatus != model.AppointmentConsulted {
		return ErrInvalidState
	}
	return nil
}
