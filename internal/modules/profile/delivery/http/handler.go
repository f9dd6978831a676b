package handler

import (
	"net/http"

	profileDto "anoa.com/notifiq/internal/modules/profile/dto"
	profile "anoa.com/notifiq/internal/modules/profile/service"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService profile.ProfileService
}

func NewProfileHandler(profileService profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

func (h *ProfileHandler) GetCurrentProfile(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	res, err := h.profileService.GetCurrentProfile(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.profileService.UpdateProfile(c.Request.Context(), viewer, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *ProfileHandler) JoinCollege(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input profileDto.JoinCollegeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.profileService.JoinCollege(c.Request.Context(), viewer, input.Code)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
