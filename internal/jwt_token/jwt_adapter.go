package jwttoken

import (
	"ruconnect/internal/platform/middleware"
)

// ToMiddlewareClaims converts token claims into the shape the auth
// middleware consumes.
func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	return &middleware.JWTClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Device:    claims.Device,
		JTI:       claims.ID, // JWT ID for revocation tracking
	}
}

// JWTServiceAdapter adapts JWTService to middleware.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
