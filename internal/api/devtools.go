package api

import (
	"encoding/json"
	"net/http"

	"github.com/quaymark/tradegate/internal/auth"
)

// Dev utility endpoints, used while migrating legacy credential data.
// They are mounted only when dev_endpoints is enabled (router.go) and must
// never be reachable in production.

// devHashRequest is the request body for POST /dev/hash.
type devHashRequest struct {
	Password string `json:"password"`
}

// devVerifyRequest is the request body for POST /dev/verify.
type devVerifyRequest struct {
	Password      string `json:"password"`
	Hash          string `json:"hash"`
	AlgorithmHint string `json:"algorithm_hint"`
}

// devResetRequest is the request body for POST /dev/reset-password.
type devResetRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

// handleDevHash produces an Argon2id hash of the supplied password.
func (s *Server) handleDevHash(w http.ResponseWriter, r *http.Request) {
	var req devHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeBadRequest(w, "password is required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeInternalError(w, "hashing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"hash": hash})
}

// handleDevVerify runs the verifier against an arbitrary hash.
func (s *Server) handleDevVerify(w http.ResponseWriter, r *http.Request) {
	var req devVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	verifier := auth.NewVerifier(s.authCfg.AllowPlaintext, s.logger.Logger)
	writeJSON(w, http.StatusOK, map[string]bool{
		"valid": verifier.Verify(req.Password, req.Hash, req.AlgorithmHint),
	})
}

// handleDevResetPassword overwrites a user's credential without verifying
// the current password.
func (s *Server) handleDevResetPassword(w http.ResponseWriter, r *http.Request) {
	var req devResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.NewPassword == "" {
		writeBadRequest(w, "email and new_password are required")
		return
	}

	creds, err := s.store.Resolve(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeInternalError(w, "hashing failed")
		return
	}

	if err := s.store.PersistPasswordHash(r.Context(), creds.UserID, hash); err != nil {
		writeServiceError(w, err)
		return
	}

	s.logger.Warn("password reset via dev endpoint", "user_id", creds.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
}
