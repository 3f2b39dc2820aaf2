package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"proxy-fleet/pkg/auth"
	"proxy-fleet/pkg/model"
)

type AuthHandler struct {
	DB     *gorm.DB
	Logger *logrus.Entry
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
}

// handleRegister only allows the first admin to be created (sudo).
func (a *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var count int64
	a.DB.Model(&model.Admin{}).Count(&count)
	if count > 0 {
		http.Error(w, "registration closed", http.StatusForbidden)
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	admin := model.Admin{Username: req.Username, PasswordHash: string(hash), IsSudo: true}
	if err := a.DB.Create(&admin).Error; err != nil {
		http.Error(w, "failed to create admin", http.StatusInternalServerError)
		return
	}
	a.Logger.WithField("admin", admin.Username).Info("bootstrap admin created")

	token, _ := auth.Generate(admin.ID, admin.Username, admin.IsSudo, 24*time.Hour)
	a.writeToken(w, token)
}

func (a *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	var admin model.Admin
	if err := a.DB.Where("username = ?", req.Username).First(&admin).Error; err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, _ := auth.Generate(admin.ID, admin.Username, admin.IsSudo, 24*time.Hour)
	a.writeToken(w, token)
}

func (a *AuthHandler) writeToken(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"token": token}); err != nil {
		a.Logger.WithError(err).Error("failed to write response")
	}
}
