package endpoint

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/medisure/claims-api/model"
	"github.com/medisure/claims-api/util"
	"gorm.io/gorm"
)

type CompleteProfileRequest struct {
	Phone   string `json:"phone" example:"+1-555-0101"`
	Address string `json:"address" example:"123 Main St"`
	Role    string `json:"role" example:"DOCTOR"`
}

// GetCurrentUser godoc
// @Summary      Get current user profile
// @Tags         Users
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "User retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user [get]
func GetCurrentUser(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, _, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	user, ok := fetchUserByID(c, db, userID)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: gin.H{
		"id":               user.ID,
		"name":             user.Name,
		"email":            user.Email,
		"role":             user.Role,
		"phone":            user.Phone,
		"address":          user.Address,
		"profile_complete": user.ProfileComplete(),
	}})
}

// CompleteProfile godoc
// @Summary      Complete user profile
// @Description  Fill in phone, address, and optionally pick a role. The role can only be changed while the profile is incomplete.
// @Tags         Users
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CompleteProfileRequest true "Profile details"
// @Success      200 {object} util.APIResponse "Profile updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Role already fixed"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/complete-profile [put]
func CompleteProfile(c *gin.Context) {
	var req CompleteProfileRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	if req.Phone == "" && req.Address == "" && req.Role == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field (phone, address, or role) must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
		return
	}

	if req.Role != "" && !model.ValidRole(req.Role) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: fmt.Errorf("unknown role %q", req.Role)})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	userID, _, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	user, ok := fetchUserByID(c, db, userID)
	if !ok {
		return
	}

	// Role is mutable exactly once: after the profile is complete, the role
	// drives every authorization decision and stays fixed.
	if req.Role != "" && model.Role(req.Role) != user.Role {
		if user.ProfileComplete() {
			util.CallForbidden(c, util.APIErrorParams{Msg: "Role can no longer be changed", Err: fmt.Errorf("profile already completed")})
			return
		}
		user.Role = model.Role(req.Role)
	}

	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Address != "" {
		user.Address = req.Address
	}

	if err := db.Save(user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update profile", Err: err})
		return
	}

	// Role may have changed; drop the cached identity so the auth path
	// re-reads it.
	util.IdentityCacheInvalidate(user.ID)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Profile updated successfully", Data: gin.H{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"role":    user.Role,
		"phone":   user.Phone,
		"address": user.Address,
	}})
}

// ListDoctors godoc
// @Summary      List doctors
// @Description  List users with role DOCTOR, used when booking appointments
// @Tags         Users
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Doctors retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/doctors [get]
func ListDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var doctors []model.User
	if err := db.Where("role = ?", model.RoleDoctor).Order("name ASC").Find(&doctors).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}

	out := make([]gin.H, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, gin.H{"id": d.ID, "name": d.Name, "email": d.Email})
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: out})
}

// fetchUserByID retrieves a user by ID, returning appropriate error responses for not found or DB errors.
func fetchUserByID(c *gin.Context, db *gorm.DB, userID uint) (*model.User, bool) {
	var user model.User
	if err := db.First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "User not found", Err: err})
			return nil, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve user", Err: err})
		return nil, false
	}
	return &user, true
}
