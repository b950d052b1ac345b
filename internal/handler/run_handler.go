package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schedex/internal/service"
)

// RunHandler handles workbook submission and run report endpoints.
type RunHandler struct {
	runService service.RunService
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runService service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

// Create handles POST /api/v1/runs
// The workbook is sent as multipart field "file". The run executes
// synchronously and the full processing report is returned.
func (h *RunHandler) Create(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	report, err := h.runService.Submit(c.Request.Context(), service.RunInput{
		FileName: header.Filename,
		Body:     file,
		Size:     header.Size,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, report)
}

// GetByID handles GET /api/v1/runs/:id
func (h *RunHandler) GetByID(c *gin.Context) {
	report, err := h.runService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, report)
}

// List handles GET /api/v1/runs
func (h *RunHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)
	runs, total, err := h.runService.List(c.Request.Context(), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}
