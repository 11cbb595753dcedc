// Package accounts is the identity collaborator: registration, login,
// owner verification and password reset.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"pickup-kitchen/apperr"
	"pickup-kitchen/logger"
	"pickup-kitchen/models"
	"pickup-kitchen/notify"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidResetToken  = fmt.Errorf("%w: reset link is invalid or expired", apperr.ErrInvalidInput)
	ErrAlreadyRegistered  = fmt.Errorf("%w: email or phone already registered", apperr.ErrConflict)
)

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Options struct {
	ResetStore    ResetStore
	ResetTTL      time.Duration
	Mailer        Mailer
	PublicBaseURL string
	Timeout       time.Duration
	Logger        *logger.Logger
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Service struct {
	db       *gorm.DB
	resets   ResetStore
	resetTTL time.Duration
	mailer   Mailer
	baseURL  string
	timeout  time.Duration
	log      *logger.Logger
	cost     int
	validate *validator.Validate
}

func NewService(db *gorm.DB, opts Options) *Service {
	s := &Service{
		db:       db,
		resets:   opts.ResetStore,
		resetTTL: opts.ResetTTL,
		mailer:   opts.Mailer,
		baseURL:  opts.PublicBaseURL,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		cost:     opts.BcryptCost,
		validate: validator.New(),
	}
	if s.resets == nil {
		s.resets = NewMemoryResetStore()
	}
	if s.resetTTL <= 0 {
		s.resetTTL = 30 * time.Minute
	}
	if s.timeout <= 0 {
		s.timeout = 5 * time.Second
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

func (s *Service) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}

type RegisterRequest struct {
	FirstName string          `json:"first_name" binding:"required" validate:"required,max=100"`
	LastName  string          `json:"last_name" binding:"required" validate:"required,max=100"`
	Email     string          `json:"email" binding:"required,email" validate:"required,email"`
	Phone     string          `json:"phone" binding:"required" validate:"required,min=7,max=20"`
	Password  string          `json:"password" binding:"required,min=8" validate:"required,min=8,max=72"`
	Role      models.UserRole `json:"role"`
}

// Register creates a customer or restaurant owner. Owners start unverified.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Role == "" {
		req.Role = models.RoleCustomer
	}
	if req.Role != models.RoleCustomer && req.Role != models.RoleOwner {
		return nil, apperr.Invalid("role", "role must be customer or restaurant_owner")
	}
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, apperr.Invalid(strings.ToLower(verrs[0].Field()), "failed the "+verrs[0].Tag()+" rule")
		}
		return nil, apperr.Invalid("registration", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
		IsVerified:   req.Role == models.RoleCustomer,
		IsActive:     true,
	}

	db, cancel := s.conn(ctx)
	defer cancel()
	if err := db.Create(user).Error; err != nil {
		if apperr.IsDuplicate(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, apperr.FromStorage(err)
	}

	s.log.Info("user_registered", "account created",
		slog.Uint64("user_id", uint64(user.ID)), slog.String("role", string(user.Role)))
	return user, nil
}

// Login checks credentials and returns the user for token issuance.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, id uint) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", id, apperr.FromStorage(err))
	}
	return &user, nil
}

// ListOwners returns restaurant owners, optionally only those awaiting
// verification.
func (s *Service) ListOwners(ctx context.Context, pendingOnly bool) ([]models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Where("role = ?", models.RoleOwner)
	if pendingOnly {
		q = q.Where("is_verified = ?", false)
	}
	var owners []models.User
	if err := q.Order("created_at ASC").Find(&owners).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	return owners, nil
}

func (s *Service) VerifyOwner(ctx context.Context, id uint) (*models.User, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("role = ?", models.RoleOwner).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("owner %d: %w", id, apperr.FromStorage(err))
	}
	if err := db.Model(&user).Update("is_verified", true).Error; err != nil {
		return nil, apperr.FromStorage(err)
	}
	user.IsVerified = true
	s.log.Info("owner_verified", "restaurant owner verified", slog.Uint64("user_id", uint64(id)))
	return &user, nil
}

// RequestPasswordReset stores a ticket under a fresh request id and emails
// the link. Unknown emails succeed silently so accounts cannot be probed.
// Each request gets its own id, so overlapping requests do not clobber
// each other.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var user models.User
	err := db.Where("email = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.FromStorage(err)
	}

	requestID := uuid.NewString()
	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash reset token: %w", err)
	}
	if err := s.resets.Put(ctx, requestID, ResetTicket{UserID: user.ID, TokenHash: string(hash)}, s.resetTTL); err != nil {
		return "", err
	}

	if s.mailer != nil {
		link := fmt.Sprintf("%s/reset-password?request=%s&token=%s",
			s.baseURL, url.QueryEscape(requestID), url.QueryEscape(token))
		subject, body, err := notify.PasswordReset(user.FirstName, link, s.resetTTL.String())
		if err == nil {
			err = s.mailer.Send(ctx, user.Email, subject, body)
		}
		if err != nil {
			s.log.Error("reset_email_failed", "could not send reset email", err, slog.Uint64("user_id", uint64(user.ID)))
		}
	}
	return requestID, nil
}

// ResetPassword consumes the ticket and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, requestID, token, newPassword string) error {
	if len(newPassword) < 8 || len(newPassword) > 72 {
		return apperr.Invalid("password", "password must be between 8 and 72 characters")
	}

	ticket, err := s.resets.Take(ctx, requestID)
	if errors.Is(err, apperr.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(ticket.TokenHash), []byte(token)) != nil {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	db, cancel := s.conn(ctx)
	defer cancel()
	res := db.Model(&models.User{}).Where("id = ?", ticket.UserID).Update("password_hash", string(hash))
	if res.Error != nil {
		return apperr.FromStorage(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidResetToken
	}
	return nil
}
