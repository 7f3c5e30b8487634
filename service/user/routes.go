package user

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/clinicore/hmis-server/cmd/utils"
	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = time.Hour
	refreshTokenTTL = 30 * 24 * time.Hour
)

type Handler struct {
	directory Directory
}

func NewHandler(directory Directory) *Handler {
	return &Handler{directory: directory}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.handleLogin).Methods("POST")
	router.HandleFunc("/auth/register", h.handleRegister).Methods("POST")
	router.HandleFunc("/auth/refresh", h.handleRefreshToken).Methods("POST")
	router.HandleFunc("/doctors", h.GetDoctors).Methods("GET")
	router.HandleFunc("/doctors/{id}", h.GetDoctor).Methods("GET")
	router.HandleFunc("/doctors/{id}/slots", h.GetDoctorSlots).Methods("GET")
}

// userPayload is the account shape returned to clients after login and
// registration.
func userPayload(user *models.User) map[string]interface{} {
	payload := map[string]interface{}{
		"id":   user.ID,
		"name": user.FullName,
		"role": user.Role,
	}
	if user.Specialty != "" {
		payload["specialty"] = user.Specialty
	}
	if user.Phone != "" {
		payload["phone"] = user.Phone
	}
	return payload
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&loginRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.directory.FindByEmail(loginRequest.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(loginRequest.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, err := utils.GenerateToken(user.ID, user.Role, accessTokenTTL)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := utils.GenerateToken(user.ID, user.Role, refreshTokenTTL)
	if err != nil {
		http.Error(w, "Error generating refresh token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":         accessToken,
		"refresh_token": refreshToken,
		"user":          userPayload(user),
	})
}

// handleRegister creates a patient account. Staff accounts come from the
// seed command, not self-registration.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var registerRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}

	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if registerRequest.Name == "" || registerRequest.Email == "" || registerRequest.Password == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(registerRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error hashing password", http.StatusInternalServerError)
		return
	}

	user := models.User{
		FullName:     registerRequest.Name,
		Email:        registerRequest.Email,
		PasswordHash: string(passwordHash),
		Role:         models.RolePatient,
		Phone:        registerRequest.Phone,
	}

	if err := h.directory.Create(&user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			http.Error(w, "Email is already in use", http.StatusConflict)
			return
		}
		log.Printf("error registering user: %v", err)
		http.Error(w, "Error registering user", http.StatusInternalServerError)
		return
	}

	accessToken, err := utils.GenerateToken(user.ID, user.Role, accessTokenTTL)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": accessToken,
		"user":  userPayload(&user),
	})
}

func (h *Handler) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var refreshRequest struct {
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&refreshRequest); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims := &utils.Claims{}
	token, err := jwt.ParseWithClaims(refreshRequest.RefreshToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("SECRET_KEY")), nil
	})
	if err != nil || !token.Valid {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.directory.FindByID(uint(userID))
	if err != nil {
		http.Error(w, "Account no longer exists", http.StatusUnauthorized)
		return
	}

	accessToken, err := utils.GenerateToken(user.ID, user.Role, accessTokenTTL)
	if err != nil {
		http.Error(w, "Error generating access token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token": accessToken,
	})
}

func (h *Handler) GetDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.directory.ListDoctors()
	if err != nil {
		http.Error(w, "Error retrieving doctors", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doctors)
}

func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	doctor, err := h.directory.FindByID(uint(doctorID))
	if err != nil || !doctor.IsDoctor() {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doctor)
}

func (h *Handler) GetDoctorSlots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	doctorID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid doctor ID", http.StatusBadRequest)
		return
	}

	doctor, err := h.directory.FindByID(uint(doctorID))
	if err != nil || !doctor.IsDoctor() {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}

	slots, err := h.directory.Slots(uint(doctorID))
	if err != nil {
		http.Error(w, "Error retrieving slots", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(slots)
}
