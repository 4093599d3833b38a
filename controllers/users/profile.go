package users

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/akivalo0017-dot/travelsite/models"
	"github.com/akivalo0017-dot/travelsite/utils"
)

// UpdateProfile updates the caller's full name and, when a file is
// attached, replaces the avatar in object storage. JPG/PNG uploads are
// decoded and re-encoded to strip anything that is not image data.
func (c *UserController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid form data"})
		return
	}

	var user models.User
	if err := c.DB.First(&user, uid).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
		return
	}

	fullName := strings.TrimSpace(r.FormValue("full_name"))
	if fullName != "" && fullName != "null" {
		user.FullName = fullName
	}

	file, handler, err := r.FormFile("profile")
	if err == nil && handler != nil {
		defer file.Close()

		ext := strings.ToLower(filepath.Ext(handler.Filename))
		allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
		if !allowedExts[ext] {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Image must be JPG, PNG or WEBP"})
			return
		}
		if handler.Size > 5<<20 {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Image must be at most 5MB"})
			return
		}

		buf := make([]byte, 512)
		n, err := file.Read(buf)
		if err != nil && err != io.EOF {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Failed to read image"})
			return
		}
		detected := http.DetectContentType(buf[:n])
		isWEBP := ext == ".webp" || detected == "image/webp"

		if _, err := file.Seek(0, 0); err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Failed to read image"})
			return
		}
		allBytes, err := io.ReadAll(file)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Failed to read image"})
			return
		}

		var imageBytes []byte
		if isWEBP {
			imageBytes = allBytes
		} else {
			if detected != "image/jpeg" && detected != "image/png" {
				utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Image must be JPG, PNG or WEBP"})
				return
			}
			img, format, err := image.Decode(bytes.NewReader(allBytes))
			if err != nil {
				utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid image format"})
				return
			}
			var outBuf bytes.Buffer
			switch format {
			case "jpeg":
				err = jpeg.Encode(&outBuf, img, &jpeg.Options{Quality: 85})
			case "png":
				err = png.Encode(&outBuf, img)
			default:
				utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Image must be JPG, PNG or WEBP"})
				return
			}
			if err != nil {
				utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to process image"})
				return
			}
			imageBytes = outBuf.Bytes()
			if ext == ".jpeg" {
				ext = ".jpg"
			}
		}

		if user.Profile != nil && *user.Profile != "" {
			_ = utils.DeleteFromS3(*user.Profile)
		}

		imgName := "profile_" + strconv.FormatUint(uint64(uid), 10) + "_" + strconv.FormatInt(time.Now().UnixNano(), 10) + ext
		if err := utils.UploadToS3(imgName, bytes.NewReader(imageBytes)); err != nil {
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to upload image"})
			return
		}
		user.Profile = &imgName
	}

	if err := c.DB.Save(&user).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to save profile"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Profile updated",
		Data: map[string]interface{}{
			"full_name": user.FullName,
			"profile":   user.Profile,
		},
	})
}

// DeleteProfile removes the caller's avatar from object storage and
// clears the reference.
func (c *UserController) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var user models.User
	if err := c.DB.First(&user, uid).Error; err != nil {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "User not found"})
		return
	}

	if user.Profile != nil && *user.Profile != "" {
		// the object may already be gone; clearing the reference still succeeds
		_ = utils.DeleteFromS3(*user.Profile)
	}

	user.Profile = nil
	if err := c.DB.Save(&user).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to delete profile"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Profile deleted",
		Data: map[string]interface{}{
			"full_name": user.FullName,
			"profile":   nil,
		},
	})
}
