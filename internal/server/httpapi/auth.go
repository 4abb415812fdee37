package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ZenonWrites/BlockchainEvoting/internal/server/repository"
	shared "github.com/ZenonWrites/BlockchainEvoting/internal/shared/models"
)

type requestOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type phoneLoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp"`
}

func (r *Router) handleRequestOTP(w http.ResponseWriter, req *http.Request) {
	var body requestOTPRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	echo, err := r.services.Auth.RequestOTP(req.Context(), body.PhoneNumber)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := map[string]string{"message": "OTP sent successfully"}
	if echo != "" {
		resp["otp"] = echo
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) handlePhoneLogin(w http.ResponseWriter, req *http.Request) {
	var body phoneLoginRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid json")
		return
	}
	token, err := r.services.Auth.Login(req.Context(), body.PhoneNumber, body.OTP)
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid phone number or OTP.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form data")
		return
	}
	form := shared.RegistrationForm{
		Username:      req.FormValue("username"),
		Email:         req.FormValue("email"),
		PhoneNumber:   req.FormValue("phone_number"),
		VoterID:       req.FormValue("voter_id"),
		AdhaarNumber:  req.FormValue("adhaar_number"),
		Address:       req.FormValue("address"),
		WalletAddress: req.FormValue("wallet_address"),
	}
	if fields := missingRegistrationFields(form); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	user, err := r.services.Auth.Register(req.Context(), form)
	if err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			writeJSON(w, http.StatusBadRequest, map[string][]string{
				conflict.Field: {"A user with this value already exists."},
			})
			return
		}
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func missingRegistrationFields(form shared.RegistrationForm) map[string][]string {
	required := map[string]string{
		"username":       form.Username,
		"email":          form.Email,
		"phone_number":   form.PhoneNumber,
		"voter_id":       form.VoterID,
		"adhaar_number":  form.AdhaarNumber,
		"address":        form.Address,
		"wallet_address": form.WalletAddress,
	}
	out := map[string][]string{}
	for field, v := range required {
		if v == "" {
			out[field] = []string{"This field is required."}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (r *Router) handleAuthenticatedUser(w http.ResponseWriter, req *http.Request) {
	user, err := r.services.Auth.User(req.Context(), getUserID(req.Context()))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeDetail(w, http.StatusUnauthorized, "Invalid token.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}
