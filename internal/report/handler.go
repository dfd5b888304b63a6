package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/extract"
	"rmn-analyst/internal/llm"
	"rmn-analyst/internal/shared/server/middleware"
	"rmn-analyst/internal/shared/server/respond"
	"rmn-analyst/internal/shared/storage/object"
	"rmn-analyst/internal/shared/telemetry"
	"rmn-analyst/internal/shared/util"
)

const (
	msgInvalidInput  = "Invalid file contents provided"
	msgAnalyzeFailed = "Failed to analyze files"
	msgSafetyBlocked = "The request was blocked due to safety settings. Please check your input data."
	msgReadFailed    = "Failed to read analysis"

	uploadField  = "files"
	archiveRoot  = "reports"
	maxFileCount = 20
)

// Handler wires HTTP handlers to the report service.
type Handler struct {
	Svc *Service
	// Archive receives raw uploads under reports/<cacheId>/. Nil disables archiving.
	Archive object.ObjectStore
	// AnalyzeMiddleware runs in front of the routes that call the model.
	AnalyzeMiddleware []gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, archive object.ObjectStore) *Handler {
	return &Handler{Svc: svc, Archive: archive}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	analyze := append(append([]gin.HandlerFunc{}, h.AnalyzeMiddleware...), h.analyze)
	upload := append(append([]gin.HandlerFunc{}, h.AnalyzeMiddleware...), h.analyzeUpload)
	rg.POST("/analyze", analyze...)
	rg.POST("/analyze/upload", upload...)
	rg.GET("/analysis/:id", h.getAnalysis)
}

type analyzeRequest struct {
	FileContents []string `json:"fileContents"`
}

func (h *Handler) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_input", msgInvalidInput, nil)
		return
	}
	h.runAnalysis(c, req.FileContents, nil)
}

type uploadedFile struct {
	name        string
	contentType string
	data        []byte
}

func (h *Handler) analyzeUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if isBodyTooLarge(err) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_input", "multipart form with files is required", nil)
		return
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		respond.Error(c, http.StatusBadRequest, "invalid_input", msgInvalidInput, nil)
		return
	}
	if len(headers) > maxFileCount {
		respond.Error(c, http.StatusBadRequest, "invalid_input", fmt.Sprintf("at most %d files per request", maxFileCount), nil)
		return
	}

	files := make([]uploadedFile, 0, len(headers))
	contents := make([]string, 0, len(headers))
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_input", "failed to read uploaded file", gin.H{"file": fh.Filename})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		text, err := extract.Text(c.Request.Context(), data, contentType, fh.Filename)
		if err != nil {
			if errors.Is(err, extract.ErrUnsupported) {
				respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file", "Only PDF, CSV, DOCX and text reports are supported", gin.H{"file": fh.Filename})
				return
			}
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "Could not read text from the uploaded file", gin.H{"file": fh.Filename})
			return
		}
		if strings.TrimSpace(text) == "" {
			respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "Could not read text from the uploaded file", gin.H{"file": fh.Filename})
			return
		}
		files = append(files, uploadedFile{
			name:        fh.Filename,
			contentType: extract.DetectType(contentType, fh.Filename, data),
			data:        data,
		})
		contents = append(contents, text)
	}

	h.runAnalysis(c, contents, files)
}

func (h *Handler) runAnalysis(c *gin.Context, contents []string, files []uploadedFile) {
	res, err := h.Svc.Analyze(c.Request.Context(), contents)
	if err != nil {
		var groundErr *GroundingError
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_input", msgInvalidInput, nil)
		case errors.As(err, &groundErr):
			c.Set(middleware.CacheIDKey, groundErr.CacheID)
			c.Set(middleware.DocumentTypeKey, string(groundErr.DocumentType))
			h.archiveUploads(c, groundErr.CacheID, files)
			telemetry.Warn("analysis.ungrounded", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"cache_id":   groundErr.CacheID,
				"reason":     groundErr.Error(),
			})
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"error":        groundErr.Message,
				"documentType": groundErr.DocumentType,
				"allowed":      groundErr.Allowed,
				"cacheId":      groundErr.CacheID,
			})
		case errors.Is(err, llm.ErrSafetyBlocked):
			respond.Error(c, http.StatusUnprocessableEntity, "safety_blocked", msgSafetyBlocked, nil)
		default:
			telemetry.Error("analysis.failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"error":      err,
			})
			respond.Error(c, http.StatusInternalServerError, "analysis_failed", msgAnalyzeFailed, nil)
		}
		return
	}

	c.Set(middleware.CacheIDKey, res.CacheID)
	c.Set(middleware.DocumentTypeKey, string(res.DocumentType))
	c.Set(middleware.CacheHitKey, res.Cached)
	h.archiveUploads(c, res.CacheID, files)
	respond.JSON(c, http.StatusOK, res)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	id := c.Param("id")
	res, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidID):
			respond.Error(c, http.StatusBadRequest, "invalid_id", "Invalid analysis id", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Not found", nil)
		default:
			telemetry.Error("analysis.read_failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"cache_id":   id,
				"error":      err,
			})
			respond.Error(c, http.StatusInternalServerError, "read_failed", msgReadFailed, nil)
		}
		return
	}
	c.Set(middleware.CacheIDKey, res.CacheID)
	c.Set(middleware.CacheHitKey, true)
	respond.JSON(c, http.StatusOK, res)
}

// archiveUploads is best effort. The response never waits on a failed write.
func (h *Handler) archiveUploads(c *gin.Context, cacheID string, files []uploadedFile) {
	if h.Archive == nil || len(files) == 0 || cacheID == "" {
		return
	}
	for i, f := range files {
		name, err := util.SanitizeFileName(f.name)
		if err != nil {
			name = "upload"
		}
		key := path.Join(archiveRoot, cacheID, fmt.Sprintf("%02d_%s", i+1, name))
		if _, err := h.Archive.Put(c.Request.Context(), key, f.contentType, bytes.NewReader(f.data)); err != nil {
			telemetry.Warn("archive.put_failed", map[string]any{
				"request_id": middleware.RequestIDFromContext(c),
				"key":        key,
				"error":      err,
			})
		}
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
