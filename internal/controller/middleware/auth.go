package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lshigami/compliance/internal/dto"
	"github.com/lshigami/compliance/internal/model"
	"github.com/rs/zerolog/log"
)

const actorKey = "actor"

var errMissingToken = errors.New("missing bearer token")

// ParseToken validates an HS256 token and extracts the caller identity from
// the "sub" and "role" claims.
func ParseToken(tokenString, secret string) (model.Actor, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return model.Actor{}, errMissingToken
	}
	if secret == "" {
		return model.Actor{}, errors.New("token secret is not configured")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Actor{}, fmt.Errorf("invalid token: %w", err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return model.Actor{}, errors.New("token has no subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return model.Actor{}, fmt.Errorf("invalid subject %q", sub)
	}
	roleClaim, _ := claims["role"].(string)
	role, err := model.ParseRole(roleClaim)
	if err != nil {
		return model.Actor{}, err
	}
	return model.Actor{UserID: uint(userID), Role: role}, nil
}

// NewToken signs a token for the given actor. Used by tooling and tests.
func NewToken(actor model.Actor, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(actor.UserID), 10),
		"role": string(actor.Role),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Auth rejects requests without a valid token and stores the actor on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		actor, err := ParseToken(ctx.GetHeader("Authorization"), secret)
		if err != nil {
			log.Warn().Err(err).Str("path", ctx.FullPath()).Msg("Auth: rejected request")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "Unauthorized"})
			return
		}
		ctx.Set(actorKey, actor)
		ctx.Next()
	}
}

// ActorFrom returns the actor set by Auth.
func ActorFrom(ctx *gin.Context) (model.Actor, bool) {
	v, ok := ctx.Get(actorKey)
	if !ok {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

// Timeout bounds the request context so database calls give up with the client.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if d <= 0 {
			ctx.Next()
			return
		}
		c, cancel := context.WithTimeout(ctx.Request.Context(), d)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(c)
		ctx.Next()
	}
}
