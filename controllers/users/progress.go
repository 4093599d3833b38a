package users

import (
	"errors"
	"log"
	"net/http"

	"github.com/akivalo0017-dot/travelsite/progression"
	"github.com/akivalo0017-dot/travelsite/utils"
)

// Progress returns the caller's full progression snapshot: profile,
// per-task progress, tasks available at the current pointer, and stats.
func (c *UserController) Progress(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	snap, err := c.Reader.GetUserSnapshot(r.Context(), uid)
	if err != nil {
		if errors.Is(err, progression.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
			return
		}
		log.Printf("[progress] snapshot error for user %d: %v", uid, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Internal server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Progress fetched",
		Data:    snap,
	})
}
