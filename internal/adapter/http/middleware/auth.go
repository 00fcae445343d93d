package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stridelab/activity-tracker/internal/domain/models"
	wrap "github.com/stridelab/activity-tracker/pkg/logger/wrapper"
)

// --- base auth middleware ---

// Auth validates the device JWT and injects the device into context.
// Requests without a header pass through as anonymous; protected endpoints
// reject those via RequireDevice.
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		header := r.Header.Get("Authorization")
		if header == "" {
			r = r.WithContext(models.WithDevice(ctx, models.AnonymousDevice()))
			next.ServeHTTP(w, r)
			return
		}

		token, err := extractBearerToken(header)
		if err != nil {
			errorResponse(w, http.StatusUnauthorized, err.Error())
			return
		}

		deviceID, err := m.parseDeviceToken(token)
		if err != nil {
			m.log.Warn(ctx, "failed to authenticate device", "err", err.Error())
			errorResponse(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		ctx = models.WithDevice(ctx, &models.Device{ID: deviceID})
		ctx = wrap.WithDeviceID(ctx, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireDevice wraps a handler and allows only authenticated devices.
func (m *Middleware) RequireDevice(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := models.DeviceFromContext(r.Context())
		if device.IsAnonymous() {
			errorResponse(w, http.StatusUnauthorized, "authorization required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// parseDeviceToken verifies the HS256 signature and returns the device_id claim.
func (m *Middleware) parseDeviceToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	deviceID, _ := claims["device_id"].(string)
	if deviceID == "" {
		return "", fmt.Errorf("token missing device_id claim")
	}

	return deviceID, nil
}

// --- header parser ---
func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	return parts[1], nil
}
