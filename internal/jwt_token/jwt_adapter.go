package jwttoken

import (
	authmw "walletgate/pkg/platform/middleware/auth"
)

// JWTServiceAdapter exposes JWTService through the middleware's validator contract.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.JWTClaims{AccountID: claims.AccountID, JTI: claims.ID}, nil
}
