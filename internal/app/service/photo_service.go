package service

import (
	"errors"
	"fmt"

	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/app/repository"
	"github.com/plannery/plannery-backend/internal/storage"
	"github.com/plannery/plannery-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrPhotoNotApproved  = errors.New("photo is not approved")
	ErrPhotoWrongVenue   = errors.New("photo does not belong to this venue")
	ErrUploadNotAllowed  = errors.New("upload not allowed")
	ErrInvalidUploadFile = errors.New("invalid upload file")
)

const maxPhotoSizeBytes = 10 << 20 // 10 MB

var allowedPhotoTypes = []string{"image/jpeg", "image/png", "image/webp"}

// PhotoStorage issues presigned upload tickets.
type PhotoStorage interface {
	GeneratePhotoUploadTicket(venueID uint, filename, contentType string) (*storage.PhotoUploadTicket, error)
	ValidateFileSize(size int64, maxSize int64) error
	ValidateContentType(contentType string, allowedTypes []string) error
}

type CreatePhotoInput struct {
	OriginalURL string `json:"original_url" binding:"required"`
	ThumbURL    string `json:"thumb_url"`
	MediumURL   string `json:"medium_url"`
	Order       int    `json:"order"`
}

type BulkModerationResult struct {
	Approved int      `json:"approved"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

type PhotoService interface {
	RequestUpload(actor *model.User, venueID uint, filename, contentType string, size int64) (*storage.PhotoUploadTicket, error)
	CreatePhoto(actor *model.User, venueID uint, input CreatePhotoInput) (*model.VenuePhoto, error)
	ListPhotos(venueID uint, includeUnapproved bool) ([]model.VenuePhoto, error)
	ListPending(limit, offset int) ([]model.VenuePhoto, int64, error)
	Approve(actor *model.User, photoID uint) error
	Reject(actor *model.User, photoID uint) error
	BulkApprove(actor *model.User, photoIDs []uint) (*BulkModerationResult, error)
	SetPrimary(actor *model.User, venueID, photoID uint) error
	DeletePhoto(actor *model.User, photoID uint) error
}

type photoService struct {
	photoRepo repository.PhotoRepository
	venueRepo repository.VenueRepository
	storage   PhotoStorage
}

func NewPhotoService(photoRepo repository.PhotoRepository, venueRepo repository.VenueRepository, photoStorage PhotoStorage) PhotoService {
	return &photoService{
		photoRepo: photoRepo,
		venueRepo: venueRepo,
		storage:   photoStorage,
	}
}

func (s *photoService) RequestUpload(actor *model.User, venueID uint, filename, contentType string, size int64) (*storage.PhotoUploadTicket, error) {
	if _, err := s.venueRepo.FindByID(venueID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}

	if err := s.storage.ValidateFileSize(size, maxPhotoSizeBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUploadFile, err)
	}
	if err := s.storage.ValidateContentType(contentType, allowedPhotoTypes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUploadFile, err)
	}

	ticket, err := s.storage.GeneratePhotoUploadTicket(venueID, filename, contentType)
	if err != nil {
		logger.Error("Failed to generate photo upload ticket", err, map[string]interface{}{
			"venue_id": venueID,
			"actor_id": actor.ID,
		})
		return nil, err
	}
	return ticket, nil
}

// CreatePhoto records an uploaded photo. Privileged actors get admin-sourced,
// auto-approved photos; everyone else enters the moderation queue.
func (s *photoService) CreatePhoto(actor *model.User, venueID uint, input CreatePhotoInput) (*model.VenuePhoto, error) {
	if _, err := s.venueRepo.FindByID(venueID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}

	source := model.PhotoSourceUser
	approved := false
	if actor.Role.IsPrivileged() {
		source = model.PhotoSourceAdmin
		approved = true
	}

	photo := &model.VenuePhoto{
		VenueID:     venueID,
		Source:      source,
		IsApproved:  approved,
		Order:       input.Order,
		ThumbURL:    input.ThumbURL,
		MediumURL:   input.MediumURL,
		OriginalURL: input.OriginalURL,
		UploadedBy:  &actor.ID,
	}

	if err := s.photoRepo.Create(photo); err != nil {
		return nil, err
	}

	logger.Info("Venue photo created", map[string]interface{}{
		"photo_id": photo.ID,
		"venue_id": venueID,
		"source":   source,
		"approved": approved,
	})
	return photo, nil
}

func (s *photoService) ListPhotos(venueID uint, includeUnapproved bool) ([]model.VenuePhoto, error) {
	return s.photoRepo.ListByVenue(venueID, !includeUnapproved)
}

func (s *photoService) ListPending(limit, offset int) ([]model.VenuePhoto, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.photoRepo.ListPending(limit, offset)
}

func (s *photoService) Approve(actor *model.User, photoID uint) error {
	if !actor.Role.IsPrivileged() {
		return ErrPermissionDenied
	}
	if _, err := s.findPhoto(photoID); err != nil {
		return err
	}
	if err := s.photoRepo.SetApproval(photoID, true); err != nil {
		return err
	}
	logger.Info("Photo approved", map[string]interface{}{
		"photo_id": photoID,
		"actor_id": actor.ID,
	})
	return nil
}

// Reject removes a pending photo.
func (s *photoService) Reject(actor *model.User, photoID uint) error {
	if !actor.Role.IsPrivileged() {
		return ErrPermissionDenied
	}
	if _, err := s.findPhoto(photoID); err != nil {
		return err
	}
	if err := s.photoRepo.Delete(photoID); err != nil {
		return err
	}
	logger.Info("Photo rejected", map[string]interface{}{
		"photo_id": photoID,
		"actor_id": actor.ID,
	})
	return nil
}

// BulkApprove approves a batch of photos, continuing past per-item failures
// and reporting aggregate counts.
func (s *photoService) BulkApprove(actor *model.User, photoIDs []uint) (*BulkModerationResult, error) {
	if !actor.Role.IsPrivileged() {
		return nil, ErrPermissionDenied
	}

	result := &BulkModerationResult{}
	for _, id := range photoIDs {
		if err := s.Approve(actor, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("photo %d: %v", id, err))
			continue
		}
		result.Approved++
	}

	logger.Info("Bulk photo approval completed", map[string]interface{}{
		"approved": result.Approved,
		"failed":   result.Failed,
	})
	return result, nil
}

// SetPrimary promotes an approved photo to the venue's primary.
func (s *photoService) SetPrimary(actor *model.User, venueID, photoID uint) error {
	if !actor.Role.IsPrivileged() {
		return ErrPermissionDenied
	}

	photo, err := s.findPhoto(photoID)
	if err != nil {
		return err
	}
	if photo.VenueID != venueID {
		return ErrPhotoWrongVenue
	}
	if !photo.IsApproved {
		return ErrPhotoNotApproved
	}

	return s.photoRepo.SetPrimary(venueID, photoID)
}

// DeletePhoto removes a photo. Owners may delete their own uploads;
// moderators may delete any.
func (s *photoService) DeletePhoto(actor *model.User, photoID uint) error {
	photo, err := s.findPhoto(photoID)
	if err != nil {
		return err
	}

	owner := photo.UploadedBy != nil && *photo.UploadedBy == actor.ID
	if !owner && !actor.Role.IsPrivileged() {
		return ErrPermissionDenied
	}

	return s.photoRepo.Delete(photoID)
}

func (s *photoService) findPhoto(photoID uint) (*model.VenuePhoto, error) {
	photo, err := s.photoRepo.FindByID(photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return photo, nil
}
