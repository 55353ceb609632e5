package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/plannery/plannery-backend/internal/app/service"
	"github.com/plannery/plannery-backend/internal/errors"
	"github.com/plannery/plannery-backend/internal/middleware"
)

// AdminController hosts moderation and bulk-maintenance endpoints. All routes
// behind it require a privileged role at the router level.
type AdminController struct {
	photoService service.PhotoService
	venueService service.VenueService
}

func NewAdminController(photoService service.PhotoService, venueService service.VenueService) *AdminController {
	return &AdminController{
		photoService: photoService,
		venueService: venueService,
	}
}

type BackfillRequest struct {
	Items []service.BackfillItem `json:"items" binding:"required,min=1"`
}

// ListPendingPhotos handles GET /admin/photos/pending.
func (ctrl *AdminController) ListPendingPhotos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	photos, total, err := ctrl.photoService.ListPending(limit, offset)
	if err != nil {
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photos":      photos,
		"total_count": total,
	})
}

// ApprovePhoto handles POST /admin/photos/:id/approve.
func (ctrl *AdminController) ApprovePhoto(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	photoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidID, "invalid photo id")
		return
	}

	if err := ctrl.photoService.Approve(actor, uint(photoID)); err != nil {
		switch err {
		case service.ErrPhotoNotFound:
			errors.NotFound(c, errors.PhotoNotFound, "photo not found")
		case service.ErrPermissionDenied:
			errors.Forbidden(c, "")
		default:
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "photo approved"})
}

// RejectPhoto handles POST /admin/photos/:id/reject.
func (ctrl *AdminController) RejectPhoto(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	photoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidID, "invalid photo id")
		return
	}

	if err := ctrl.photoService.Reject(actor, uint(photoID)); err != nil {
		switch err {
		case service.ErrPhotoNotFound:
			errors.NotFound(c, errors.PhotoNotFound, "photo not found")
		case service.ErrPermissionDenied:
			errors.Forbidden(c, "")
		default:
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "photo rejected"})
}

// BulkApprovePhotos handles POST /admin/photos/bulk-approve.
func (ctrl *AdminController) BulkApprovePhotos(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req BulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "photo_ids is required")
		return
	}

	result, err := ctrl.photoService.BulkApprove(actor, req.PhotoIDs)
	if err != nil {
		if err == service.ErrPermissionDenied {
			errors.Forbidden(c, "")
			return
		}
		log.Error("Bulk approval failed", err, nil)
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, result)
}

// BackfillVenues handles POST /admin/venues/backfill: bulk metadata
// correction with per-item isolation and aggregate counts.
func (ctrl *AdminController) BackfillVenues(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "items is required")
		return
	}

	result, err := ctrl.venueService.Backfill(actor, req.Items)
	if err != nil {
		if err == service.ErrPermissionDenied {
			errors.Forbidden(c, "")
			return
		}
		log.Error("Venue backfill failed", err, nil)
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, result)
}
