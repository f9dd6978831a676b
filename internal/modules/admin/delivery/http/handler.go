package handler

import (
	"net/http"

	adminDto "anoa.com/notifiq/internal/modules/admin/dto"
	adminService "anoa.com/notifiq/internal/modules/admin/service"
	"anoa.com/notifiq/pkg/apperror"
	"anoa.com/notifiq/pkg/response"
	"anoa.com/notifiq/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AdminHandler struct {
	adminService adminService.AdminService
}

func NewAdminHandler(adminService adminService.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

func (h *AdminHandler) ListColleges(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	colleges, err := h.adminService.ListColleges(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": colleges})
}

func (h *AdminHandler) CreateCollege(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input adminDto.CreateCollegeRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	college, err := h.adminService.CreateCollege(c.Request.Context(), viewer, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, college)
}

func (h *AdminHandler) DeleteCollege(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	if err := h.adminService.DeleteCollege(c.Request.Context(), viewer, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "college deleted successfully"})
}

func (h *AdminHandler) ListAdmins(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	admins, err := h.adminService.ListAdmins(c.Request.Context(), viewer)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": admins})
}

func (h *AdminHandler) AssignAdmin(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input adminDto.AssignAdminRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	res, err := h.adminService.AssignAdmin(c.Request.Context(), viewer, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) RevokeAdmin(c *gin.Context) {
	viewer, err := response.GetViewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	if err := h.adminService.RevokeAdmin(c.Request.Context(), viewer, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "admin access revoked"})
}
