package version

import (
	"net/http"

	"lifeplan-backend/internal/domain"
	"lifeplan-backend/internal/errors"
	"lifeplan-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func scopeFromContext(c *gin.Context) domain.Scope {
	ownerID, _ := c.Get("user_id")
	return domain.Scope{
		OwnerID: ownerID.(uint64),
		GroupID: c.Query("group"),
	}
}

func documentTypeParam(c *gin.Context) (domain.DocumentType, bool) {
	documentType, ok := domain.ParseDocumentType(c.Param("type"))
	if !ok {
		c.Error(errors.BadRequest("Unknown document type", nil))
		return "", false
	}
	return documentType, true
}

func draftIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.Error(errors.BadRequest("Invalid draft id", err))
		return uuid.Nil, false
	}
	return id, true
}

type CreateDocumentRequest struct {
	Content map[string]any `json:"content" binding:"required"`
}

func (h *Handler) CreateDocument(c *gin.Context) {
	documentType, ok := documentTypeParam(c)
	if !ok {
		return
	}

	var form CreateDocumentRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.CreateFirstVersion(
		c.Request.Context(),
		documentType,
		scopeFromContext(c),
		domain.FieldContent(form.Content),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *Handler) ShowCurrentDocument(c *gin.Context) {
	documentType, ok := documentTypeParam(c)
	if !ok {
		return
	}

	result, err := h.service.GetCurrentDocument(c.Request.Context(), documentType, scopeFromContext(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ShowVersions(c *gin.Context) {
	documentType, ok := documentTypeParam(c)
	if !ok {
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListVersions(c.Request.Context(), documentType, scopeFromContext(c), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) EnsureDraft(c *gin.Context) {
	documentType, ok := documentTypeParam(c)
	if !ok {
		return
	}

	draft, created, err := h.service.EnsureDraft(c.Request.Context(), documentType, scopeFromContext(c))
	if err != nil {
		c.Error(err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, draft)
}

func (h *Handler) ShowDraft(c *gin.Context) {
	documentType, ok := documentTypeParam(c)
	if !ok {
		return
	}

	draft, err := h.service.GetDraft(c.Request.Context(), documentType, scopeFromContext(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (h *Handler) ShowDraftChanges(c *gin.Context) {
	documentType, ok := documentTypeParam(c)
	if !ok {
		return
	}

	changes, err := h.service.GetDraftChanges(c.Request.Context(), documentType, scopeFromContext(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, changes)
}

type UpdateFieldRequest struct {
	Value any `json:"value"`
}

func (h *Handler) UpdateDraftField(c *gin.Context) {
	draftID, ok := draftIDParam(c)
	if !ok {
		return
	}

	var form UpdateFieldRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	ownerID, _ := c.Get("user_id")

	draft, err := h.service.UpdateDraftField(
		c.Request.Context(),
		ownerID.(uint64),
		draftID,
		c.Param("key"),
		form.Value,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (h *Handler) MarkFieldRefined(c *gin.Context) {
	draftID, ok := draftIDParam(c)
	if !ok {
		return
	}

	ownerID, _ := c.Get("user_id")

	draft, err := h.service.MarkFieldRefined(
		c.Request.Context(),
		ownerID.(uint64),
		draftID,
		c.Param("key"),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, draft)
}

func (h *Handler) DeleteDraft(c *gin.Context) {
	draftID, ok := draftIDParam(c)
	if !ok {
		return
	}

	ownerID, _ := c.Get("user_id")

	if err := h.service.DeleteDraft(c.Request.Context(), ownerID.(uint64), draftID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) CommitDraft(c *gin.Context) {
	draftID, ok := draftIDParam(c)
	if !ok {
		return
	}

	ownerID, _ := c.Get("user_id")

	result, err := h.service.CommitDraft(c.Request.Context(), ownerID.(uint64), draftID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
