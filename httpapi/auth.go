package httpapi

import (
	"net/http"

	"github.com/MrEthical07/storefront"
	"github.com/go-chi/chi/v5"
)

type emailRequest struct {
	Email string `json:"email" validate:"required"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required"`
	Otp   string `json:"otp" validate:"required"`
}

func (h *handlers) authRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Get("/logout", h.logout)
	r.Get("/refresh-tokens", h.refreshTokens)
	r.Post("/verify-email", h.verifyEmail)
	r.Post("/send-email-verification-email", h.sendEmailVerification)
	r.Post("/send-password-reset-email", h.sendPasswordReset)
	r.Post("/reset-password", h.resetPassword)
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var req storefront.RegisterRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	identity, err := h.engine.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusCreated,
		"Registration successful! A verification email has been sent. Please check your inbox and verify your email to sign in",
		identity)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var req storefront.LoginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.engine.Login(r.Context(), w, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Login successful", nil)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Logout(r.Context(), w)
	writeOK(w, r, http.StatusOK, "Logout successful", nil)
}

func (h *handlers) refreshTokens(w http.ResponseWriter, r *http.Request) {
	token := h.engine.Transport().RefreshToken(r)
	if _, err := h.engine.RefreshTokens(r.Context(), w, token); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Token refreshed", nil)
}

func (h *handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.engine.VerifyEmail(r.Context(), req.Email, req.Otp); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Email verified successfully", nil)
}

func (h *handlers) sendEmailVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.engine.SendEmailVerificationOtp(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Email verification email sent successfully", nil)
}

func (h *handlers) sendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.engine.SendPasswordResetOtp(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Password reset email sent successfully", nil)
}

func (h *handlers) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req storefront.ResetPasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.engine.ResetPassword(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Password reset successfully", nil)
}
