package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"
)

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the given refresh token and blacklists the access-token
// jti from the Authorization header when Redis is configured.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}
	if req.RefreshToken == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "refresh_token is required"})
		return
	}

	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if claims, err := utils.ValidateAccessToken(tokenStr); err == nil {
			if jti, ok := claims["jti"].(string); ok && jti != "" {
				var ttl time.Duration
				if expRaw, ok := claims["exp"].(float64); ok {
					ttl = time.Until(time.Unix(int64(expRaw), 0))
				}
				if ttl < 0 {
					ttl = 0
				}
				_ = utils.RevokeJTI(jti, ttl)
			}
		}
		// parse errors are ignored; the refresh token is still revoked
	}

	// Always answer 200 so tokens cannot be enumerated.
	_ = c.DB.Model(&models.RefreshToken{}).Where("id = ?", req.RefreshToken).Update("revoked", true).Error
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}
