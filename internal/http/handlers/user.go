package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veldtops/fieldsuite-backend/internal/http/response"
	"github.com/veldtops/fieldsuite-backend/internal/services"
)

// Avatar uploads cap out well below document uploads.
const maxAvatarBytes = 8 << 20

type UserHandler struct {
	users services.UserService
}

func NewUserHandler(users services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/me
func (h *UserHandler) GetMe(c *gin.Context) {
	profile, err := h.users.GetProfile(c.Request.Context(), actorID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, profile)
}

// PATCH /api/me/name
func (h *UserHandler) UpdateName(c *gin.Context) {
	var req struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	user, err := h.users.UpdateProfile(c.Request.Context(), actorID(c), services.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": user})
}

// POST /api/me/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	file, _, err := c.Request.FormFile("avatar")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("multipart field 'avatar' is required"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxAvatarBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(raw) > maxAvatarBytes {
		response.RespondError(c, http.StatusBadRequest, "file_too_large", errors.New("avatar exceeds 8 MB"))
		return
	}

	user, err := h.users.UploadAvatar(c.Request.Context(), actorID(c), raw)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": user})
}

// POST /api/me/avatar/generate
func (h *UserHandler) GenerateAvatar(c *gin.Context) {
	user, err := h.users.ResetAvatar(c.Request.Context(), actorID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": user})
}
