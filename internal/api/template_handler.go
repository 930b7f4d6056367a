package api

import (
	"alcyxob/workout-tracker/internal/domain"
	"alcyxob/workout-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TemplateHandler holds the template service dependency.
type TemplateHandler struct {
	templateService service.TemplateService
}

// NewTemplateHandler creates a new TemplateHandler.
func NewTemplateHandler(templateService service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templateService: templateService}
}

// --- DTOs for API (Data Transfer Objects) ---

// TemplateNameRequest is the body of template create and rename.
type TemplateNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddTemplateExerciseRequest defines the expected JSON for adding an exercise to a template.
type AddTemplateExerciseRequest struct {
	Name        string  `json:"name" binding:"required"`
	DefaultSets int     `json:"defaultSets" binding:"min=0"`
	DefaultReps int     `json:"defaultReps" binding:"min=0"`
	ImageKey    *string `json:"imageKey"` // Key returned by POST /uploads/images
}

// UpdateTemplateExerciseRequest carries a partial update; absent fields are left untouched.
type UpdateTemplateExerciseRequest struct {
	Name        *string `json:"name"`
	DefaultSets *int    `json:"defaultSets"`
	DefaultReps *int    `json:"defaultReps"`
	ImageKey    *string `json:"imageKey"`
}

// UploadImageRequest names the content type the client will PUT.
type UploadImageRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

// IDResponse is returned by every create endpoint.
type IDResponse struct {
	ID string `json:"id"`
}

// --- Handler Methods ---

// ListTemplates godoc
// @Summary List workout templates
// @Description Returns the caller's templates, newest first.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.WorkoutTemplate
// @Failure 401 {object} gin.H "Unauthorized"
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	templates, err := h.templateService.ListTemplates(c.Request.Context(), identity)
	if err != nil {
		respondWithError(c, err, "list templates")
		return
	}
	c.JSON(http.StatusOK, templates)
}

// GetTemplate godoc
// @Summary Get one template with its exercises
// @Description Exercises are ordered by their order field and carry a temporary image URL. An unknown template yields null.
// @Tags Templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} service.TemplateDetails
// @Failure 400 {object} gin.H "Invalid ID"
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	templateID, ok := parseObjectIDParam(c, "id", "template")
	if !ok {
		return
	}

	details, err := h.templateService.GetTemplate(c.Request.Context(), identity, templateID)
	if err != nil {
		respondWithError(c, err, "get template")
		return
	}
	c.JSON(http.StatusOK, details)
}

// CreateTemplate godoc
// @Summary Create a workout template
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param template body TemplateNameRequest true "Template name"
// @Success 201 {object} IDResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req TemplateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	templateID, err := h.templateService.CreateTemplate(c.Request.Context(), identity, req.Name)
	if err != nil {
		respondWithError(c, err, "create template")
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: templateID.Hex()})
}

func (h *TemplateHandler) UpdateTemplateName(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	templateID, ok := parseObjectIDParam(c, "id", "template")
	if !ok {
		return
	}
	var req TemplateNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	if err := h.templateService.UpdateTemplateName(c.Request.Context(), identity, templateID, req.Name); err != nil {
		respondWithError(c, err, "update template")
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveTemplate deletes the template, its exercises and their images.
func (h *TemplateHandler) RemoveTemplate(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	templateID, ok := parseObjectIDParam(c, "id", "template")
	if !ok {
		return
	}

	if err := h.templateService.RemoveTemplate(c.Request.Context(), identity, templateID); err != nil {
		respondWithError(c, err, "remove template")
		return
	}
	c.Status(http.StatusNoContent)
}

// AddExercise godoc
// @Summary Append an exercise to a template
// @Tags Templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Param exercise body AddTemplateExerciseRequest true "Exercise details"
// @Success 201 {object} IDResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Template not found"
// @Router /templates/{id}/exercises [post]
func (h *TemplateHandler) AddExercise(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	templateID, ok := parseObjectIDParam(c, "id", "template")
	if !ok {
		return
	}
	var req AddTemplateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	exerciseID, err := h.templateService.AddExerciseToTemplate(c.Request.Context(), identity, templateID, service.NewTemplateExercise{
		Name:        req.Name,
		DefaultSets: req.DefaultSets,
		DefaultReps: req.DefaultReps,
		ImageKey:    req.ImageKey,
	})
	if err != nil {
		respondWithError(c, err, "add exercise")
		return
	}
	c.JSON(http.StatusCreated, IDResponse{ID: exerciseID.Hex()})
}

func (h *TemplateHandler) UpdateExercise(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	exerciseID, ok := parseObjectIDParam(c, "id", "exercise")
	if !ok {
		return
	}
	var req UpdateTemplateExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	patch := domain.TemplateExercisePatch{
		Name:        req.Name,
		DefaultSets: req.DefaultSets,
		DefaultReps: req.DefaultReps,
		ImageKey:    req.ImageKey,
	}
	if err := h.templateService.UpdateTemplateExercise(c.Request.Context(), identity, exerciseID, patch); err != nil {
		respondWithError(c, err, "update exercise")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TemplateHandler) RemoveExercise(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	exerciseID, ok := parseObjectIDParam(c, "id", "exercise")
	if !ok {
		return
	}

	if err := h.templateService.RemoveTemplateExercise(c.Request.Context(), identity, exerciseID); err != nil {
		respondWithError(c, err, "remove exercise")
		return
	}
	c.Status(http.StatusNoContent)
}

// IssueImageUpload godoc
// @Summary Get a presigned URL for uploading an exercise image
// @Description The client PUTs the image to uploadUrl, then sends imageKey along with the exercise. The content type only selects the key extension.
// @Tags Uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UploadImageRequest true "Content type of the image"
// @Success 200 {object} service.UploadDescriptor
// @Failure 400 {object} gin.H "Not an image content type"
// @Router /uploads/images [post]
func (h *TemplateHandler) IssueImageUpload(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req UploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	descriptor, err := h.templateService.IssueUploadDescriptor(c.Request.Context(), identity, req.ContentType)
	if err != nil {
		respondWithError(c, err, "generate upload URL")
		return
	}
	c.JSON(http.StatusOK, descriptor)
}
