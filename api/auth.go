package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/guildops/recruit/pkg/models"
	"github.com/guildops/recruit/pkg/repository"
)

type AuthHandler struct {
	userRepo      repository.UserRepo
	jwtSecret     string
	tokenDuration time.Duration
	adminEmail    func(string) bool
}

// NewAuthHandler creates a new AuthHandler. adminEmail decides whether a
// signing-up email gets back-office access; nil means nobody does.
func NewAuthHandler(ur repository.UserRepo, jwtSecret string, tokenDuration time.Duration, adminEmail func(string) bool) *AuthHandler {
	if adminEmail == nil {
		adminEmail = func(string) bool { return false }
	}
	return &AuthHandler{userRepo: ur, jwtSecret: jwtSecret, tokenDuration: tokenDuration, adminEmail: adminEmail}
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, "name, email and password are required", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, "error hashing password", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		IsAdmin:      h.adminEmail(req.Email),
		PasswordHash: string(hash),
	}

	userID, err := h.userRepo.CreateUser(ctx, &user)
	if err != nil {
		writeError(w, "error creating user", http.StatusInternalServerError)
		return
	}
	user.ID = userID

	tokenStr, err := h.issueToken(&user)
	if err != nil {
		writeError(w, "error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusCreated)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userRepo.GetUserByEmail(r.Context(), req.Email)
	if err != nil || user == nil {
		writeError(w, "credentials not found", http.StatusUnauthorized)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, "credentials not found", http.StatusUnauthorized)
		return
	}

	tokenStr, err := h.issueToken(user)
	if err != nil {
		writeError(w, "error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, authResponse{Token: tokenStr}, http.StatusOK)
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"message":"signed out"}`)
}

func (h *AuthHandler) issueToken(u *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  u.ID,
		"email":    u.Email,
		"name":     u.Name,
		"is_admin": u.IsAdmin,
		"exp":      time.Now().Add(h.tokenDuration).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}
