package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/service"
	"github.com/plannery/plannery-backend/internal/errors"
	"github.com/plannery/plannery-backend/internal/middleware"
	"github.com/plannery/plannery-backend/pkg/util"
)

type VenueController struct {
	venueService    service.VenueService
	trendingService service.TrendingService
}

func NewVenueController(venueService service.VenueService, trendingService service.TrendingService) *VenueController {
	return &VenueController{
		venueService:    venueService,
		trendingService: trendingService,
	}
}

// Search handles GET /venues. All filters are optional query parameters; an
// ids parameter switches to allow-list mode.
func (ctrl *VenueController) Search(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	opts, err := parseSearchOptions(c)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidFormat, err.Error())
		return
	}

	if role, ok := middleware.GetUserRole(c); ok && role.IsPrivileged() {
		opts.IncludeAllStatuses = strings.EqualFold(c.Query("include_all"), "true")
	}

	result, err := ctrl.venueService.Search(c.Request.Context(), *opts)
	if err != nil {
		log.Error("Venue search failed", err, nil)
		errors.InternalError(c, "failed to search venues")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"venues":      result.Venues,
		"total_count": result.TotalCount,
	})
}

func (ctrl *VenueController) GetVenue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var viewerID *uint
	if userID, authed := middleware.GetUserID(c); authed {
		viewerID = &userID
	}

	venue, err := ctrl.venueService.GetVenue(c.Request.Context(), id, viewerID)
	if err != nil {
		if err == service.ErrVenueNotFound {
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
			return
		}
		log.Error("Failed to fetch venue", err, map[string]interface{}{
			"venue_id": id,
		})
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"venue": venue})
}

func (ctrl *VenueController) CreateVenue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var input service.CreateVenueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "invalid venue payload")
		return
	}

	venue, err := ctrl.venueService.CreateVenue(actor, input)
	if err != nil {
		log.Error("Failed to create venue", err, nil)
		errors.InternalError(c, "failed to create venue")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"venue": venue})
}

func (ctrl *VenueController) UpdateVenue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var input service.UpdateVenueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		errors.BadRequest(c, errors.ValidationInvalidInput, "invalid venue payload")
		return
	}

	venue, err := ctrl.venueService.UpdateVenue(actor, id, input)
	if err != nil {
		switch err {
		case service.ErrVenueNotFound:
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
		case service.ErrPermissionDenied:
			errors.Forbidden(c, "")
		default:
			log.Error("Failed to update venue", err, map[string]interface{}{
				"venue_id": id,
			})
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"venue": venue})
}

func (ctrl *VenueController) DeleteVenue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.venueService.DeleteVenue(actor, id); err != nil {
		switch err {
		case service.ErrVenueNotFound:
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
		case service.ErrPermissionDenied:
			errors.Forbidden(c, "")
		default:
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "venue deleted"})
}

func (ctrl *VenueController) Follow(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.venueService.Follow(userID, id); err != nil {
		switch err {
		case service.ErrVenueNotFound:
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
		case service.ErrAlreadyFollowing:
			errors.Conflict(c, errors.VenueAlreadyFollowed, "already following this venue")
		default:
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "venue followed"})
}

func (ctrl *VenueController) Unfollow(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.venueService.Unfollow(userID, id); err != nil {
		switch err {
		case service.ErrNotFollowing:
			errors.Conflict(c, errors.VenueNotFollowed, "not following this venue")
		default:
			errors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "venue unfollowed"})
}

// AssociatePlan and DisassociatePlan are called by the plan workflow when a
// venue is added to or removed from a plan.
func (ctrl *VenueController) AssociatePlan(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.venueService.AssociatePlan(id); err != nil {
		if err == service.ErrVenueNotFound {
			errors.NotFound(c, errors.VenueNotFound, "venue not found")
			return
		}
		errors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan association recorded"})
}

func (ctrl *VenueController) DisassociatePlan(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	if err := ctrl.venueService.DisassociatePlan(id); err != nil {
		errors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "plan association removed"})
}

func (ctrl *VenueController) Trending(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	venues, err := ctrl.trendingService.GetTrendingVenues(c.Request.Context(), limit)
	if err != nil {
		log.Error("Failed to fetch trending venues", err, nil)
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"venues": venues,
		"count":  len(venues),
	})
}

func (ctrl *VenueController) RecentlyViewed(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return
	}

	venues, err := ctrl.venueService.GetRecentlyViewed(c.Request.Context(), userID)
	if err != nil {
		errors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"venues": venues,
		"count":  len(venues),
	})
}

func parseSearchOptions(c *gin.Context) (*service.SearchOptions, error) {
	opts := &service.SearchOptions{
		Query:     c.Query("q"),
		VenueType: c.Query("type"),
		OpenNow:   strings.EqualFold(c.Query("open_now"), "true"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.DefaultQuery("sort_order", ""),
	}

	if raw := c.Query("ids"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				return nil, strconv.ErrSyntax
			}
			opts.IDs = append(opts.IDs, uint(id))
		}
		return opts, nil
	}

	if raw := c.Query("lat"); raw != "" {
		lat, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, err
		}
		lng, err := strconv.ParseFloat(c.Query("lng"), 64)
		if err != nil {
			return nil, err
		}
		opts.Latitude = &lat
		opts.Longitude = &lng

		if rawRadius := c.Query("radius_km"); rawRadius != "" {
			radius, err := strconv.ParseFloat(rawRadius, 64)
			if err != nil {
				return nil, err
			}
			opts.RadiusKm = &radius
		} else if rawRadius := c.Query("radius_mi"); rawRadius != "" {
			miles, err := strconv.ParseFloat(rawRadius, 64)
			if err != nil {
				return nil, err
			}
			radius := util.MilesToKm(miles)
			opts.RadiusKm = &radius
		}
	}

	if raw := c.Query("price_level"); raw != "" {
		price, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		opts.PriceLevel = &price
	}

	opts.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	opts.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return opts, nil
}

// requireActor builds the acting user from the authenticated context.
func requireActor(c *gin.Context) (*model.User, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		errors.Unauthorized(c, "")
		return nil, false
	}
	role, ok := middleware.GetUserRole(c)
	if !ok {
		role = model.RoleUser
	}
	return &model.User{ID: userID, Role: role}, true
}

// parseIDParam parses the :id path parameter, responding on failure.
func parseIDParam(c *gin.Context) (uint, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		errors.BadRequest(c, errors.ValidationInvalidID, "invalid venue id")
		return 0, false
	}
	return uint(id), true
}
