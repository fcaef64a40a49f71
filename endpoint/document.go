package endpoint

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/lifecycle"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
	"gorm.io/gorm"
)

// maxDocumentSize is the per-file upload limit (10 MiB).
const maxDocumentSize = 10 * 1024 * 1024

var allowedDocumentMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// pendingUpload is a validated file waiting for storage. The whole batch is
// validated before the first byte is uploaded, so an invalid file commits
// nothing.
type pendingUpload struct {
	header  *multipart.FileHeader
	docType model.DocumentType
}

// UploadDocuments godoc
// @Summary      Upload medical documents (doctor only)
// @Description  Multipart upload of one or more files for an ACCEPTED appointment belonging to the doctor and the named patient. Fields: files[], appointment_id, patient_id, type_<i> per file. Each file must be at most 10 MiB and of an allowed type; one invalid file rejects the whole batch.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     SessionToken
// @Success      201 {object} util.APIResponse "Documents uploaded"
// @Failure      400 {object} util.APIResponse "Invalid file or form"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Not a doctor"
// @Failure      404 {object} util.APIResponse "Appointment not found or not yours"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /document [post]
func UploadDocuments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, _, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid multipart form", Err: err})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "No files provided", Err: fmt.Errorf("files field is empty")})
		return
	}

	appointmentID, patientID, ok := parseDocumentFormIDs(c, form)
	if !ok {
		return
	}

	appt, ok := fetchDoctorAppointment(c, db, appointmentID, userID, patientID)
	if !ok {
		return
	}

	if err := lifecycle.CheckDocumentUpload(appt.Status); err != nil {
		respondLifecycleError(c, err, "Documents can only be uploaded for an accepted appointment")
		return
	}

	// Validate the whole batch up front: size, MIME type, and document
	// type per file. Nothing is stored until every file passes.
	batch := make([]pendingUpload, 0, len(files))
	for i, fh := range files {
		docTypeStr := formValue(form, fmt.Sprintf("type_%d", i))
		if !model.ValidDocumentType(docTypeStr) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Invalid document type for file %s", fh.Filename),
				Err: fmt.Errorf("unknown document type %q", docTypeStr),
			})
			return
		}
		if fh.Size > maxDocumentSize {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("File %s exceeds the 10MB limit", fh.Filename),
				Err: fmt.Errorf("file size %d exceeds limit", fh.Size),
			})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if !util.Contains(contentType, allowedDocumentMimeTypes) {
			util.CallUserError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("File type %s is not allowed for file %s", contentType, fh.Filename),
				Err: fmt.Errorf("mime type %q not allowed", contentType),
			})
			return
		}
		batch = append(batch, pendingUpload{header: fh, docType: model.DocumentType(docTypeStr)})
	}

	// Upload sequentially. A storage failure mid-batch leaves earlier
	// objects stored; there is no compensation step.
	uploaded := make([]model.Document, 0, len(batch))
	for _, item := range batch {
		doc, err := storeDocument(c, db, appt, userID, item)
		if err != nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: fmt.Sprintf("Failed to store file %s", item.header.Filename),
				Err: err,
			})
			return
		}
		uploaded = append(uploaded, *doc)
	}

	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventDocumentUpload,
		UserID:    fmt.Sprintf("%d", userID),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Uploaded %d document(s) for appointment %d", len(uploaded), appt.ID),
	})

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  fmt.Sprintf("Successfully uploaded %d document(s)", len(uploaded)),
		Data: uploaded,
	})
}

// ListDocuments godoc
// @Summary      List documents
// @Description  List documents visible to the caller. Doctors and patients see documents of their own appointments; insurance and bank see all. Optional appointment_id filter.
// @Tags         Documents
// @Produce      json
// @Security     SessionToken
// @Param        appointment_id query int false "Filter by appointment"
// @Success      200 {object} util.APIResponse "Documents retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /document [get]
func ListDocuments(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, role, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	query := db.Model(&model.Document{})

	if apptStr := c.Query("appointment_id"); apptStr != "" {
		apptID, err := strconv.ParseUint(apptStr, 10, 32)
		if err != nil || apptID == 0 {
			util.CallUserError(c, util.APIErrorParams{Msg: "appointment_id must be a positive integer", Err: fmt.Errorf("invalid appointment_id")})
			return
		}
		// Patients and doctors may only name appointments within their
		// own scope; outside it the appointment does not exist for them.
		if role == model.RolePatient || role == model.RoleDoctor {
			var appt model.Appointment
			err := appointmentScope(db, userID, role).Where("appointments.id = ?", apptID).First(&appt).Error
			if err == gorm.ErrRecordNotFound {
				util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
				return
			}
			if err != nil {
				util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointment", Err: err})
				return
			}
		}
		query = query.Where("appointment_id = ?", apptID)
	} else if role == model.RolePatient || role == model.RoleDoctor {
		query = query.Where("appointment_id IN (?)",
			appointmentScope(db, userID, role).Select("id"))
	}

	var documents []model.Document
	if err := query.Order("created_at DESC").Find(&documents).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve documents", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Documents retrieved", Data: documents})
}

// parseDocumentFormIDs extracts and validates appointment_id and patient_id
// from the multipart form.
func parseDocumentFormIDs(c *gin.Context, form *multipart.Form) (uint, uint, bool) {
	apptStr := formValue(form, "appointment_id")
	patientStr := formValue(form, "patient_id")
	if apptStr == "" || patientStr == "" {
		util.CallUserError(c, util.APIErrorParams{Msg: "appointment_id and patient_id are required", Err: fmt.Errorf("missing form fields")})
		return 0, 0, false
	}

	apptID, err := strconv.ParseUint(apptStr, 10, 32)
	if err != nil || apptID == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "appointment_id must be a positive integer", Err: fmt.Errorf("invalid appointment_id")})
		return 0, 0, false
	}
	patientID, err := strconv.ParseUint(patientStr, 10, 32)
	if err != nil || patientID == 0 {
		util.CallUserError(c, util.APIErrorParams{Msg: "patient_id must be a positive integer", Err: fmt.Errorf("invalid patient_id")})
		return 0, 0, false
	}
	return uint(apptID), uint(patientID), true
}

// fetchDoctorAppointment loads an appointment that belongs to the given
// doctor and patient, responding 404 when no such row exists.
func fetchDoctorAppointment(c *gin.Context, db *gorm.DB, apptID, doctorID, patientID uint) (*model.Appointment, bool) {
	var appt model.Appointment
	err := db.Where("id = ? AND doctor_id = ? AND patient_id = ?", apptID, doctorID, patientID).First(&appt).Error
	if err == gorm.ErrRecordNotFound {
		util.CallErrorNotFound(c, util.APIErrorParams{
			Msg: "Appointment not found or you do not have permission to upload documents for it",
			Err: err,
		})
		return nil, false
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointment", Err: err})
		return nil, false
	}
	return &appt, true
}

// storeDocument uploads one validated file to object storage and records it.
func storeDocument(c *gin.Context, db *gorm.DB, appt *model.Appointment, uploaderID uint, item pendingUpload) (*model.Document, error) {
	f, err := item.header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	contentType := item.header.Header.Get("Content-Type")
	key := util.DocumentObjectKey(appt.ID, item.header.Filename)

	url, err := util.GetUploader().Upload(c.Request.Context(), key, contentType, body, map[string]string{
		"original-name":  item.header.Filename,
		"uploaded-by":    fmt.Sprintf("%d", uploaderID),
		"appointment-id": fmt.Sprintf("%d", appt.ID),
		"document-type":  string(item.docType),
	})
	if err != nil {
		return nil, err
	}

	doc := model.Document{
		AppointmentID: appt.ID,
		Type:          item.docType,
		Filename:      key,
		OriginalName:  item.header.Filename,
		URL:           url,
		Size:          item.header.Size,
		MimeType:      contentType,
		UploadedByID:  uploaderID,
	}
	if err := db.Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("failed to record document: %w", err)
	}
	return &doc, nil
}

func formValue(form *multipart.Form, key string) string {
	if vals, ok := form.Value[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}
