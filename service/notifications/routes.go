package notification

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/clinicore/hmis-server/cmd/utils"
	"github.com/gorilla/mux"
	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"
	"gorm.io/gorm"
)

// NotificationHandler owns the device registry and sends Expo push messages
// when appointments change.
type NotificationHandler struct {
	db         *gorm.DB
	expoClient *expo.PushClient
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{
		db:         db,
		expoClient: expo.NewPushClient(nil),
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/devices", utils.AuthMiddleware(h.RegisterDevice)).Methods("POST")
	router.HandleFunc("/users/{userId}/devices", utils.AuthMiddleware(h.GetUserDevices)).Methods("GET")
	router.HandleFunc("/users/{userId}/history", utils.AuthMiddleware(h.GetUserNotificationHistory)).Methods("GET")
	router.HandleFunc("/devices/{id}", utils.AuthMiddleware(h.DeleteDevice)).Methods("DELETE")
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var device models.Device
	if err := json.NewDecoder(r.Body).Decode(&device); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if device.UserID == 0 || device.Token == "" {
		http.Error(w, "UserID and token are required", http.StatusBadRequest)
		return
	}

	if _, err := expo.NewExponentPushToken(device.Token); err != nil {
		http.Error(w, "Invalid Expo push token format", http.StatusBadRequest)
		return
	}

	var existingDevice models.Device
	result := h.db.Where("token = ? AND user_id = ?", device.Token, device.UserID).First(&existingDevice)

	if result.Error == nil {
		existingDevice.UpdatedAt = time.Now()
		existingDevice.DeviceType = device.DeviceType
		existingDevice.DeviceName = device.DeviceName
		if err := h.db.Save(&existingDevice).Error; err != nil {
			http.Error(w, "Error updating device", http.StatusInternalServerError)
			return
		}
		device = existingDevice
	} else {
		if err := h.db.Create(&device).Error; err != nil {
			http.Error(w, "Error creating device", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Device registered successfully",
		"device":  device,
	})
}

func (h *NotificationHandler) GetUserDevices(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var devices []models.Device
	if err := h.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
		http.Error(w, "Error retrieving devices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

func (h *NotificationHandler) GetUserNotificationHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseUint(mux.Vars(r)["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	var history []models.NotificationHistory
	if err := h.db.Where("user_id = ?", userID).
		Order("sent_at DESC").Limit(100).Find(&history).Error; err != nil {
		http.Error(w, "Error retrieving history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(history)
}

func (h *NotificationHandler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid device ID", http.StatusBadRequest)
		return
	}

	result := h.db.Delete(&models.Device{}, deviceID)
	if result.Error != nil {
		http.Error(w, "Error deleting device", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Device not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Device deleted successfully",
	})
}

// PushToUser sends a push message to every device the user has registered
// and records the attempt. Failures are logged, never surfaced to the
// request that triggered them.
func (h *NotificationHandler) PushToUser(userID uint, title, body string, data map[string]interface{}) {
	go func() {
		var devices []models.Device
		if err := h.db.Where("user_id = ?", userID).Find(&devices).Error; err != nil {
			log.Printf("error loading devices for user %d: %v", userID, err)
			return
		}
		if len(devices) == 0 {
			return
		}

		status := "sent"
		for _, device := range devices {
			token, err := expo.NewExponentPushToken(device.Token)
			if err != nil {
				continue
			}
			payload := make(map[string]string, len(data))
			for k, v := range data {
				payload[k] = stringify(v)
			}
			_, err = h.expoClient.Publish(&expo.PushMessage{
				To:       []expo.ExponentPushToken{token},
				Title:    title,
				Body:     body,
				Data:     payload,
				Sound:    "default",
				Priority: expo.DefaultPriority,
			})
			if err != nil {
				log.Printf("error pushing to device %d: %v", device.ID, err)
				status = "failed"
			}
		}

		dataJSON, _ := json.Marshal(data)
		history := models.NotificationHistory{
			UserID: userID,
			Title:  title,
			Body:   body,
			Data:   string(dataJSON),
			Status: status,
			SentAt: time.Now(),
		}
		if err := h.db.Create(&history).Error; err != nil {
			log.Printf("error recording notification history: %v", err)
		}
	}()
}

func stringify(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}
