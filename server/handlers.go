package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/hourmaster/proto"
	"github.com/hazyhaar/hourmaster/store"
)

// defaultSettings seeds a fresh account: 10 active minutes per hour,
// between 08:00 and 22:00.
func defaultSettings(userID int64) *store.Settings {
	return &store.Settings{
		UserID:             userID,
		HourlyActivityGoal: 10,
		DayStartsAt:        proto.TimeOfDayFrom(8, 0, 0),
		DayEndsAt:          proto.TimeOfDayFrom(22, 0, 0),
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		proto.WriteError(w, proto.InvalidSetting("body", "invalid JSON"))
		return
	}
	if req.Username == "" || req.Password == "" {
		proto.WriteError(w, proto.InvalidSetting("credentials", "username and password are required"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		proto.WriteError(w, err)
		return
	}

	emailToken := s.newToken()
	id, err := s.store.CreateUser(r.Context(), req.Username, req.Email, hash, emailToken)
	if errors.Is(err, store.ErrConflict) {
		proto.WriteError(w, proto.CredentialsConflict("username or email", req.Username))
		return
	}
	if err != nil {
		proto.WriteError(w, err)
		return
	}

	if err := s.store.PutSettings(r.Context(), defaultSettings(id)); err != nil {
		proto.WriteError(w, err)
		return
	}

	s.log.Info("user registered", "user_id", id, "username", req.Username)
	// No mailer is wired up; surface the validation token in the debug log.
	s.log.Debug("email validation token issued", "user_id", id, "email_token", emailToken)
	proto.WriteData(w, userResponse{ID: id, Username: req.Username, Email: req.Email})
}

func (s *Server) handleValidateEmail(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.VerifyEmail(r.Context(), chi.URLParam(r, "token"))
	if errors.Is(err, store.ErrNotFound) {
		proto.WriteError(w, proto.ErrUserNotFound)
		return
	}
	if err != nil {
		proto.WriteError(w, err)
		return
	}

	user, err := s.store.UserByID(r.Context(), id)
	if err != nil {
		proto.WriteError(w, err)
		return
	}
	s.log.Info("email validated", "user_id", id)
	proto.WriteData(w, userResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		proto.WriteError(w, proto.ErrUserNotFound)
		return
	}

	user, err := s.store.UserByName(r.Context(), req.Username)
	if err != nil {
		proto.WriteError(w, proto.ErrUserNotFound)
		return
	}
	if bcrypt.CompareHashAndPassword(user.PasswdHash, []byte(req.Password)) != nil {
		proto.WriteError(w, proto.ErrUserNotFound)
		return
	}

	token := s.newToken()
	if err := s.store.CreateToken(r.Context(), token, user.ID); err != nil {
		proto.WriteError(w, err)
		return
	}

	s.log.Info("user logged in", "user_id", user.ID)
	proto.WriteData(w, map[string]string{"token": token})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.activity.CurrentSummary(r.Context(), userID(r.Context()), s.now())
	if err != nil {
		s.log.Error("summary evaluation failed", "user_id", userID(r.Context()), "error", err)
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, summary)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	summary, err := s.activity.CurrentSummary(r.Context(), userID(r.Context()), s.now())
	if err != nil {
		s.log.Error("state evaluation failed", "user_id", userID(r.Context()), "error", err)
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, summary.Status)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings(r.Context(), userID(r.Context()))
	if err != nil {
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, settings)
}

// settingsUpdate carries optional changes; nil fields keep current values.
type settingsUpdate struct {
	HourlyActivityGoal  *int             `json:"hourlyActivityGoal"`
	DayStartsAt         *proto.TimeOfDay `json:"dayStartsAt"`
	DayEndsAt           *proto.TimeOfDay `json:"dayEndsAt"`
	DayLength           *int             `json:"dayLength"`
	HourlyDebtLimit     *int             `json:"hourlyDebtLimit"`
	HourlyActivityLimit *int             `json:"hourlyActivityLimit"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var upd settingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		proto.WriteError(w, proto.InvalidSetting("body", "invalid JSON"))
		return
	}

	settings, err := s.store.Settings(r.Context(), userID(r.Context()))
	if err != nil {
		proto.WriteError(w, err)
		return
	}

	if upd.HourlyActivityGoal != nil {
		settings.HourlyActivityGoal = *upd.HourlyActivityGoal
	}
	if upd.DayStartsAt != nil {
		settings.DayStartsAt = *upd.DayStartsAt
	}
	if upd.DayEndsAt != nil {
		settings.DayEndsAt = *upd.DayEndsAt
	}
	if upd.DayLength != nil {
		settings.DayLength = upd.DayLength
	}
	if upd.HourlyDebtLimit != nil {
		settings.HourlyDebtLimit = upd.HourlyDebtLimit
	}
	if upd.HourlyActivityLimit != nil {
		settings.HourlyActivityLimit = upd.HourlyActivityLimit
	}

	// Reject invalid thresholds eagerly; they must never reach the engine.
	if settings.HourlyActivityGoal <= 0 || settings.HourlyActivityGoal > 60 {
		proto.WriteError(w, proto.InvalidSetting("hourlyActivityGoal", "must be between 1 and 60"))
		return
	}
	if settings.DayStartsAt > settings.DayEndsAt {
		proto.WriteError(w, proto.InvalidSetting("dayStartsAt", "day must not start after it ends"))
		return
	}

	if err := s.store.PutSettings(r.Context(), settings); err != nil {
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, settings)
}

type providerUpdate struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	ClientToken  string `json:"clientToken"`
}

func (s *Server) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	var upd providerUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		proto.WriteError(w, proto.InvalidSetting("body", "invalid JSON"))
		return
	}
	if upd.ClientID == "" || upd.ClientSecret == "" {
		proto.WriteError(w, proto.InvalidSetting("provider", "clientId and clientSecret are required"))
		return
	}
	err := s.store.PutCredentials(r.Context(), &store.Credentials{
		UserID:       userID(r.Context()),
		ClientID:     upd.ClientID,
		ClientSecret: upd.ClientSecret,
		ClientToken:  upd.ClientToken,
	})
	if err != nil {
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, map[string]bool{"updated": true})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.UserByID(r.Context(), userID(r.Context()))
	if err != nil {
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, userResponse{
		ID:            user.ID,
		Username:      user.Username,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
	})
}

type userUpdate struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var upd userUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		proto.WriteError(w, proto.InvalidSetting("body", "invalid JSON"))
		return
	}

	change := store.UserUpdate{Username: upd.Username, Email: upd.Email}
	if upd.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			proto.WriteError(w, err)
			return
		}
		change.PasswdHash = hash
	}

	if err := s.store.UpdateUser(r.Context(), userID(r.Context()), change); err != nil {
		if errors.Is(err, store.ErrConflict) {
			proto.WriteError(w, proto.CredentialsConflict("username or email", ""))
			return
		}
		proto.WriteError(w, err)
		return
	}
	s.handleGetUser(w, r)
}

type overrideRequest struct {
	Hour     int  `json:"hour"`
	IsActive bool `json:"isActive"`
}

func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		proto.WriteError(w, proto.InvalidSetting("body", "invalid JSON"))
		return
	}
	if req.Hour < 0 || req.Hour > 23 {
		proto.WriteError(w, proto.InvalidSetting("hour", "must be between 0 and 23"))
		return
	}
	if err := s.store.SetOverride(r.Context(), userID(r.Context()), s.now(), req.Hour, req.IsActive); err != nil {
		proto.WriteError(w, err)
		return
	}
	proto.WriteData(w, map[string]bool{"updated": true})
}
