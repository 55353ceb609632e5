package controller

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plannery/plannery-backend/internal/app/service"
	"github.com/plannery/plannery-backend/internal/errors"
	"github.com/plannery/plannery-backend/internal/middleware"
)

type PhotoController struct {
	photoService service.PhotoService
}

func NewPhotoController(photoService service.PhotoService) *PhotoController {
	return &PhotoController{photoService: photoService}
}

type UploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
}

type SetPrimaryRequest struct {
	PhotoID uint `json:"photo_id" binding:"required"`
}

type BulkApproveRequest struct {
	PhotoIDs []uint `json:"photo_ids" binding:"required"`
}

// RequestUpload handles POST /venues/:id/photos/upload-url.
func (ctrl *PhotoController) RequestUpload(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	venueID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "invalid upload request")
		return
	}

	ticket, err := ctrl.photoService.RequestUpload(actor, venueID, req.Filename, req.ContentType, req.Size)
	if err != nil {
		switch {
		case err == service.ErrVenueNotFound:
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
		case isInvalidUpload(err):
			errors.BadRequest(c, errors.PhotoInvalidFileType, err.Error())
		default:
			log.Error("Failed to create upload ticket", err, map[string]interface{}{
				"venue_id": venueID,
			})
			errors.RespondWithError(c, http.StatusInternalServerError, errors.PhotoUploadFailed, "failed to create upload URL")
		}
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// CreatePhoto handles POST /venues/:id/photos after a successful upload.
func (ctrl *PhotoController) CreatePhoto(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	venueID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input service.CreatePhotoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "invalid photo payload")
		return
	}

	photo, err := ctrl.photoService.CreatePhoto(actor, venueID, input)
	if err != nil {
		if err == service.ErrVenueNotFound {
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
			return
		}
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"photo": photo})
}

// ListPhotos handles GET /venues/:id/photos.
func (ctrl *PhotoController) ListPhotos(c *gin.Context) {
	venueID, ok := parseIDParam(c)
	if !ok {
		return
	}

	includeUnapproved := false
	if role, authed := middleware.GetUserRole(c); authed && role.IsPrivileged() {
		includeUnapproved = strings.EqualFold(c.Query("include_unapproved"), "true")
	}

	photos, err := ctrl.photoService.ListPhotos(venueID, includeUnapproved)
	if err != nil {
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"photos": photos,
		"count":  len(photos),
	})
}

// SetPrimary handles PUT /venues/:id/photos/primary.
func (ctrl *PhotoController) SetPrimary(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	venueID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SetPrimaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "photo_id is required")
		return
	}

	if err := ctrl.photoService.SetPrimary(actor, venueID, req.PhotoID); err != nil {
		switch err {
		case service.ErrPhotoNotFound:
			errors.NotFound(c, errors.PhotoNotFound, "photo not found")
		case service.ErrPhotoWrongVenue:
			errors.BadRequest(c, errors.PhotoNotFound, "photo does not belong to this venue")
		case service.ErrPhotoNotApproved:
			errors.BadRequest(c, errors.PhotoNotApproved, "photo is not approved")
		case service.ErrPermissionDenied:
			errors.Forbidden(c, "")
		default:
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "primary photo updated"})
}

// DeletePhoto handles DELETE /photos/:id.
func (ctrl *PhotoController) DeletePhoto(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	photoID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidID, "invalid photo id")
		return
	}

	if err := ctrl.photoService.DeletePhoto(actor, uint(photoID)); err != nil {
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

	c.JSON(http.StatusOK, gin.H{"message": "photo deleted"})
}

func isInvalidUpload(err error) bool {
	return stderrors.Is(err, service.ErrInvalidUploadFile)
}
