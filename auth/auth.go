package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bankapp/ledger"

	"github.com/golang-jwt/jwt/v4"
)

// --- Models ---

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// --- Tokens ---

// Tokens signs and validates the JWTs handed out at login.
type Tokens struct {
	Key []byte
	TTL time.Duration
}

func NewTokens(key []byte) Tokens {
	return Tokens{Key: key, TTL: 24 * time.Hour}
}

func (t Tokens) Generate(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.Key)
}

func (t Tokens) Validate(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.Key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// --- Handlers ---

type Env struct {
	Service *ledger.Service
	Hasher  BcryptHasher
	Tokens  Tokens
}

func (env *Env) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateCredentials(req.Username, req.Password); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := env.Service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ledger.ErrAlreadyExists) {
			RespondWithError(w, http.StatusConflict, "Username already taken")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	JSON(w, http.StatusCreated, map[string]string{"account_id": account.ID, "username": account.Username})
}

func (env *Env) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := env.Service.FindAccountByUsername(r.Context(), req.Username)
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err := env.Hasher.Verify(account.PasswordHash, req.Password); err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	tokenString, err := env.Tokens.Generate(account.Username)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"token": tokenString})
}

// --- Middleware ---

type contextKey string

const usernameKey contextKey = "username"

// Middleware validates the bearer token and puts the authenticated username
// into the request context.
func (env *Env) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			RespondWithError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token format")
			return
		}

		claims, err := env.Tokens.Validate(tokenString)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UsernameFromContext returns the username the middleware stored.
func UsernameFromContext(r *http.Request) (string, error) {
	username, ok := r.Context().Value(usernameKey).(string)
	if !ok || username == "" {
		return "", errors.New("unauthorized")
	}
	return username, nil
}

// --- Validation ---

func validateCredentials(username, password string) error {
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters long")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	return nil
}
