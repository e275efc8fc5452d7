package auth

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	db       *sql.DB
	secret   []byte
	tokenTTL time.Duration
	log      *zap.Logger
}

func NewHandler(db *sql.DB, secret []byte, tokenTTL time.Duration, log *zap.Logger) *Handler {
	return &Handler{db: db, secret: secret, tokenTTL: tokenTTL, log: log.Named("auth")}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// ------------------------------------------------------------------
// Registration: POST /auth/register
// ------------------------------------------------------------------

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		http.Error(w, "email and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	var exists int
	err := h.db.QueryRowContext(r.Context(),
		`SELECT COUNT(*) FROM users WHERE email=$1`, req.Email,
	).Scan(&exists)
	if err != nil {
		h.log.Error("register email lookup failed", zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if exists > 0 {
		http.Error(w, "email already exists", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	id := uuid.New()
	_, err = h.db.ExecContext(r.Context(),
		`INSERT INTO users (id, email, hashed_password, is_active) VALUES ($1, $2, $3, TRUE)`,
		id, req.Email, string(hash),
	)
	if err != nil {
		h.log.Error("register insert failed", zap.Error(err))
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}

	token, err := GenerateToken(h.secret, id, h.tokenTTL)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tokenResponse{Token: token, UserID: id.String()})
}

// ------------------------------------------------------------------
// Login: POST /auth/login
// ------------------------------------------------------------------

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	var (
		id     uuid.UUID
		hashed string
		active bool
	)
	err := h.db.QueryRowContext(r.Context(),
		`SELECT id, hashed_password, is_active FROM users WHERE email=$1`, req.Email,
	).Scan(&id, &hashed, &active)
	if err != nil || !active {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusForbidden)
		return
	}

	token, err := GenerateToken(h.secret, id, h.tokenTTL)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{Token: token, UserID: id.String()})
}

// ------------------------------------------------------------------
// Current user: GET /auth/me
// ------------------------------------------------------------------

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var email string
	var createdAt time.Time
	err := h.db.QueryRowContext(r.Context(),
		`SELECT email, created_at FROM users WHERE id=$1`, userID,
	).Scan(&email, &createdAt)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":         userID.String(),
		"email":      email,
		"created_at": createdAt,
	})
}
