package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Fi44er/payments_admin/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const roleAdmin = "admin"

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Admin     *models.AdminUser
}

// Login checks the admin password and issues a session token. Attempts are
// counted per client address when a limiter is configured.
func (s *Service) Login(ctx context.Context, username, password, clientIP string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("Username and password are required")
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, clientIP)
		if err != nil {
			s.logger.Warnf("Login limiter unavailable: %v", err)
		} else if !allowed {
			s.logger.Warnf("Too many login attempts from %s", clientIP)
			s.metrics.LoginAttempt(false)
			return nil, ErrTooManyAttempts
		}
	}

	admin, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if admin == nil || !admin.IsActive {
		s.metrics.LoginAttempt(false)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Warnf("Wrong password for admin %s from %s", username, clientIP)
		s.metrics.LoginAttempt(false)
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	expiresAt := now.Add(s.sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: admin.Username,
		Role:     roleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(admin.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, clientIP); err != nil {
			s.logger.Warnf("Failed to reset login attempts for %s: %v", clientIP, err)
		}
	}

	s.logger.Infof("Admin %s logged in from %s", admin.Username, clientIP)
	s.metrics.LoginAttempt(true)
	return &LoginResult{Token: signed, ExpiresAt: expiresAt, Admin: admin}, nil
}

// VerifyToken returns the claims of a valid session token or ErrUnauthorized.
func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrUnauthorized
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.Role != roleAdmin {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// EnsureAdmin creates the configured admin account unless it already exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		s.logger.Warn("ADMIN_USERNAME or ADMIN_PASSWORD is empty, skipping admin seeding")
		return nil
	}

	existing, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if err := s.repo.CreateAdmin(ctx, &models.AdminUser{Username: username, PasswordHash: string(hash), IsActive: true}); err != nil {
		return err
	}

	s.logger.Infof("✅ Admin %s created", username)
	return nil
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidCredentials)
}
