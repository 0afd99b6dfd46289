package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/deskfs/deskfs/pkg/service"
	"github.com/deskfs/deskfs/pkg/store/items"
	"github.com/deskfs/deskfs/pkg/vfs"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleBrowsePath lists the direct children of the folder named by the
// wildcard path segment. "/" lists the root.
func (s *Server) handleBrowsePath(c *gin.Context) {
	path := c.Param("path")

	rows, err := s.svc.GetItems(c.Request.Context(), path,
		items.SortField(c.Query("sortBy")),
		items.SortOrder(c.Query("sortOrder")))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows})
}

// handleAdminItems runs a filtered, paginated query over the whole tree.
func (s *Server) handleAdminItems(c *gin.Context) {
	query := items.Query{
		Search:    c.Query("search"),
		SortBy:    items.SortField(c.Query("sortBy")),
		SortOrder: items.SortOrder(c.Query("sortOrder")),
	}

	if raw := c.Query("type"); raw != "" {
		itemType := vfs.ItemType(raw)
		query.Type = &itemType
	}
	if raw := c.Query("isReal"); raw != "" {
		isReal, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(c, fmt.Errorf("%w: isReal must be a boolean", vfs.ErrValidation))
			return
		}
		query.IsReal = &isReal
	}
	if raw := c.Query("parentPath"); raw != "" {
		query.ParentPath = &raw
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			s.writeError(c, fmt.Errorf("%w: page must be a positive integer", vfs.ErrValidation))
			return
		}
		query.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			s.writeError(c, fmt.Errorf("%w: limit must be a positive integer", vfs.ErrValidation))
			return
		}
		query.Limit = limit
	}

	rows, pagination, err := s.svc.Browse(c.Request.Context(), query)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": rows, "pagination": pagination})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// handleUpload accepts a multipart upload: required "file" part, optional
// "parentPath", "name", "uploadedBy" and "admin" fields.
func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		s.writeError(c, fmt.Errorf("%w: missing file part", vfs.ErrValidation))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		s.writeError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	in := service.UploadInput{
		Data:       data,
		FileName:   fileHeader.Filename,
		CustomName: c.PostForm("name"),
		MimeType:   fileHeader.Header.Get("Content-Type"),
		UploadedBy: c.PostForm("uploadedBy"),
		UserID:     callerID(c),
		Admin:      c.PostForm("admin") == "true",
	}
	if parent := c.PostForm("parentPath"); parent != "" {
		in.ParentPath = &parent
	}
	if in.UploadedBy == "" {
		in.UploadedBy = "anonymous"
	}

	item, err := s.svc.UploadFile(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.metrics.ObserveUpload(int64(len(data)))
	c.JSON(http.StatusCreated, item)
}

type createFakeRequest struct {
	FileName   string  `json:"fileName" binding:"required"`
	ParentPath *string `json:"parentPath"`
	FileType   string  `json:"fileType" binding:"required"`
	UploadedBy string  `json:"uploadedBy"`
}

func (s *Server) handleCreateFake(c *gin.Context) {
	var req createFakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %s", vfs.ErrValidation, err.Error()))
		return
	}
	if req.UploadedBy == "" {
		req.UploadedBy = "anonymous"
	}

	item, err := s.svc.CreateFakeItem(c.Request.Context(), req.ParentPath,
		req.FileName, vfs.ItemType(req.FileType), req.UploadedBy, callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

type createFolderRequest struct {
	Name       string  `json:"name" binding:"required"`
	ParentPath *string `json:"parentPath"`
	UploadedBy string  `json:"uploadedBy"`
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %s", vfs.ErrValidation, err.Error()))
		return
	}
	if req.UploadedBy == "" {
		req.UploadedBy = "anonymous"
	}

	item, err := s.svc.CreateFolder(c.Request.Context(), req.ParentPath,
		req.Name, req.UploadedBy, callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

type updateRequest struct {
	Name       *string `json:"name"`
	ParentPath *string `json:"parentPath"`
	UserID     *string `json:"userId"`
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, fmt.Errorf("%w: %s", vfs.ErrValidation, err.Error()))
		return
	}

	item, err := s.svc.UpdateItem(c.Request.Context(), c.Param("id"), service.UpdateInput{
		Name:       req.Name,
		ParentPath: req.ParentPath,
		UserID:     req.UserID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) handleDelete(c *gin.Context) {
	if err := s.svc.DeleteRecursive(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDownload(c *gin.Context) {
	s.serveContent(c, "attachment")
}

func (s *Server) handleView(c *gin.Context) {
	s.serveContent(c, "inline")
}

// serveContent streams a real item's bytes with the resolved content type
// and the given Content-Disposition.
func (s *Server) serveContent(c *gin.Context, disposition string) {
	data, contentType, item, err := s.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.metrics.IncDownload()
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, item.Name))
	c.Data(http.StatusOK, contentType, data)
}

// handleRunGC triggers an immediate orphan collection run.
func (s *Server) handleRunGC(c *gin.Context) {
	if s.collector == nil {
		c.AbortWithStatusJSON(http.StatusNotFound,
			errorResponse{Error: "garbage collection is not configured"})
		return
	}

	stats, err := s.collector.RunNow(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"referenced": stats.ReferencedCount,
		"existing":   stats.ExistingCount,
		"orphaned":   stats.OrphanedCount,
		"deleted":    stats.DeletedCount,
		"failed":     stats.FailedCount,
		"duration":   stats.Duration().String(),
	})
}
