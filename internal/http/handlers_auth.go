package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"fintrack/internal/api"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req api.CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := core.ValidateCredentials(req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err := s.repo.CreateUser(r.Context(), core.User{
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
	}, hash)
	if err != nil {
		writeStorageError(w, r, err, "signup")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token issuance failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	slog.InfoContext(r.Context(), "User signed up", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, api.AuthResponse{
		Success:  true,
		Token:    token,
		UserData: api.FromUser(user),
		Message:  "Account created successfully",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, hash, err := s.repo.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		writeStorageError(w, r, err, "login")
		return
	}

	if !auth.CheckPassword(hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Token issuance failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	slog.InfoContext(r.Context(), "User logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, api.AuthResponse{
		Success:  true,
		Token:    token,
		UserData: api.FromUser(user),
		Message:  "Login successful",
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.UserByID(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Valid token for a deleted account is still an auth failure.
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}
		writeStorageError(w, r, err, "check")
		return
	}

	writeJSON(w, http.StatusOK, api.CheckResponse{Success: true, User: api.FromUser(user)})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req api.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := s.repo.UpdateUser(r.Context(), userID(r), storage.UserPatch{
		FullName:   req.FullName,
		ProfilePic: req.ProfilePic,
	})
	if err != nil {
		writeStorageError(w, r, err, "update_profile")
		return
	}

	writeJSON(w, http.StatusOK, api.ProfileResponse{Success: true, UserData: api.FromUser(user)})
}
