package api

import (
	"encoding/json"
	"net/http"
)

// signupRequest is the request body for POST /auth/signup.
type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Country  string `json:"country"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest carries the opaque refresh session id. The frontend stores
// it as a cookie; this service only ever sees it in the request body.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is the response body for successful login and refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Role         string `json:"role"`
	RefreshToken string `json:"refresh_token"`
	RefreshTTL   int    `json:"refresh_ttl_seconds"`
}

// changePasswordRequest is the request body for POST /auth/change-password.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleSignup registers a new user account.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.service.Signup(r.Context(), req.Name, req.Email, req.Country, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "account created"})
}

// handleLogin verifies credentials and returns a token pair.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	pair, err := s.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "Bearer",
		Role:         string(pair.Role),
		RefreshToken: pair.RefreshToken,
		RefreshTTL:   int(pair.RefreshTTL.Seconds()),
	})
}

// handleRefresh rotates a refresh session and returns a fresh token pair.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	pair, err := s.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		TokenType:    "Bearer",
		Role:         string(pair.Role),
		RefreshToken: pair.RefreshToken,
		RefreshTTL:   int(pair.RefreshTTL.Seconds()),
	})
}

// handleLogout deletes the presented refresh session. Always reports success.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	// A missing or malformed body is treated the same as a blank token.
	//nolint:errcheck
	json.NewDecoder(r.Body).Decode(&req)

	if err := s.service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// handleMe returns the verified identity of the caller.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if identity == nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

// handleChangePassword verifies the current password and replaces the
// stored credential.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r.Context())
	if identity == nil {
		writeUnauthorized(w, "invalid or expired token")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.service.ChangePassword(r.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
