// Package users registers accounts and checks their credentials.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ms-travel-sales/internal/database"
	"ms-travel-sales/internal/logger"
	"ms-travel-sales/internal/models"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

var ErrBadCredentials = errors.New("invalid email or password")

type CreateRequest struct {
	NationalID string      `json:"national_id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
	Password   string      `json:"password"`
	Role       models.Role `json:"role"`
}

func (r *CreateRequest) normalize() error {
	r.NationalID = strings.TrimSpace(r.NationalID)
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Role == "" {
		r.Role = models.RoleClient
	}

	return models.Invalid(validation.ValidateStruct(r,
		validation.Field(&r.NationalID, validation.Required),
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Phone, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Role, validation.Required, models.Known),
	))
}

type Service struct {
	bun    bun.IDB
	Cost   int
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(db bun.IDB, log *logger.Logger) *Service {
	return &Service{bun: db, Cost: bcrypt.DefaultCost, Logger: log, now: time.Now}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.User, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	taken, err := s.bun.NewSelect().Model((*models.User)(nil)).
		Where("email = ?", req.Email).
		WhereOr("national_id = ?", req.NationalID).
		Exists(ctx)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: email or national id already registered", models.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.Cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		NationalID:   req.NationalID,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if _, err := s.bun.NewInsert().Model(user).Exec(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("USERS", fmt.Sprintf("Created %s user %s (%s)", user.Role, user.Email, user.ID))
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.bun.NewSelect().Model(&user).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return nil, database.NotFound(err, "user", id)
	}
	return &user, nil
}

// Authenticate returns the active user owning email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.bun.NewSelect().Model(&user).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil || !user.Active {
		s.Logger.LogSecurity("LOGIN", "rejected login for "+email)
		return nil, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.Logger.LogSecurity("LOGIN", "rejected login for "+email)
		return nil, ErrBadCredentials
	}
	return &user, nil
}

func (s *Service) List(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins list users", models.ErrForbidden)
	}
	var out []models.User
	err := s.bun.NewSelect().Model(&out).OrderExpr("created_at ASC").Scan(ctx)
	return out, err
}
