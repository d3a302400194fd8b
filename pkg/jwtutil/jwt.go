package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/ipeterlow/labdopingv2/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

var jwtConfig *config.JWTConfig

// UserClaims extends jwt.RegisteredClaims with lab staff information.
// CurrentTeamID carries the "current team" company filter for client users.
type UserClaims struct {
	Email         string `json:"email"`
	UserID        uint   `json:"user_id"`
	Name          string `json:"name,omitempty"`
	CurrentTeamID *uint  `json:"current_team_id,omitempty"`
	jwt.RegisteredClaims
}

// Initialize sets up the JWT utilities with configuration
func Initialize(cfg *config.JWTConfig) {
	jwtConfig = cfg
}

// GenerateToken creates a signed JWT for the given user
func GenerateToken(userID uint, email, name string, currentTeamID *uint) (string, error) {
	if jwtConfig == nil {
		return "", errors.New("jwtutil not initialized")
	}

	now := time.Now()
	claims := UserClaims{
		Email:         email,
		UserID:        userID,
		Name:          name,
		CurrentTeamID: currentTeamID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(jwtConfig.ExpirationHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SigningKey))
}

// ValidateToken parses and validates a JWT, returning its claims
func ValidateToken(tokenString string) (*UserClaims, error) {
	if jwtConfig == nil {
		return nil, errors.New("jwtutil not initialized")
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtConfig.SigningKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
