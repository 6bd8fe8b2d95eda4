package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"janata/internal/ai"
	"janata/internal/auth"
	"janata/internal/config"
	"janata/internal/queue"
	"janata/internal/ratelimit"
	"janata/internal/store"
)

// NotificationQueue decouples the handler from redis so tests can capture
// queued notifications in memory.
type NotificationQueue interface {
	PushNotification(ctx context.Context, n queue.Notification) error
}

type Handler struct {
	Config  config.Config
	Store   *store.Store
	Auth    *auth.Service
	AI      *ai.Service
	Queue   NotificationQueue
	Limiter *ratelimit.Limiter
}

func NewHandler(cfg config.Config, st *store.Store, authSvc *auth.Service, aiSvc *ai.Service, q NotificationQueue, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		Config:  cfg,
		Store:   st,
		Auth:    authSvc,
		AI:      aiSvc,
		Queue:   q,
		Limiter: limiter,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/auth/register", h.handleRegister)
	mux.HandleFunc("/v1/auth/login", h.handleLogin)
	mux.HandleFunc("/v1/auth/me", h.handleMe)
	mux.HandleFunc("/v1/auth/citizens", h.handleListCitizens)
	mux.HandleFunc("/v1/auth/officers", h.handleListOfficers)

	mux.HandleFunc("/v1/grievances", h.handleCreateGrievance)
	mux.HandleFunc("/v1/grievances/my", h.handleMyGrievances)
	mux.HandleFunc("/v1/grievances/all", h.handleAllGrievances)
	mux.HandleFunc("/v1/grievances/stats", h.handleStats)
	mux.HandleFunc("/v1/grievances/assign/", h.handleAssignGrievance)
	mux.HandleFunc("/v1/grievances/update/", h.handleUpdateGrievance)

	mux.HandleFunc("/v1/ai/analyze-sentiment", h.handleAnalyzeSentiment)
	mux.HandleFunc("/v1/ai/suggest-category", h.handleSuggestCategory)
	mux.HandleFunc("/v1/ai/suggest-priority", h.handleSuggestPriority)
	mux.HandleFunc("/v1/ai/suggestions", h.handleSuggestions)
	mux.HandleFunc("/v1/ai/generate-response", h.handleGenerateResponse)
	mux.HandleFunc("/v1/ai/chatbot", h.handleChatbot)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || len(req.Password) < 6 {
		http.Error(w, "name, email and a password of at least 6 characters are required", http.StatusBadRequest)
		return
	}

	role := auth.RoleCitizen
	if req.Role != "" && req.Role != auth.RoleCitizen {
		// Elevated accounts can only be minted by an admin.
		principal, err := h.Auth.AuthenticateRequest(r)
		if err != nil || auth.RequireRole(principal, auth.RoleAdmin) != nil {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if req.Role != auth.RoleOfficer && req.Role != auth.RoleAdmin {
			http.Error(w, "invalid role", http.StatusBadRequest)
			return
		}
		role = req.Role
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id, err := h.Store.CreateUser(r.Context(), store.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	user, err := h.Store.GetUserByID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	token, err := h.Auth.IssueToken(auth.Principal{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.Auth.IssueToken(auth.Principal{UserID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, err := h.Auth.AuthenticateRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	user, err := h.Store.GetUserByID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListCitizens(w http.ResponseWriter, r *http.Request) {
	h.handleListUsersByRole(w, r, auth.RoleCitizen)
}

func (h *Handler) handleListOfficers(w http.ResponseWriter, r *http.Request) {
	h.handleListUsersByRole(w, r, auth.RoleOfficer)
}

func (h *Handler) handleListUsersByRole(w http.ResponseWriter, r *http.Request, role string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.requireRole(r, auth.RoleAdmin); err != nil {
		writeAuthError(w, err)
		return
	}
	users, err := h.Store.ListUsersByRole(r.Context(), role)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleCreateGrievance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, err := h.Auth.AuthenticateRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Attachment  string `json:"attachment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" || req.Description == "" {
		http.Error(w, "title and description are required", http.StatusBadRequest)
		return
	}

	// Enrichment is best effort and runs in parallel. Priority needs the
	// sentiment score, so it waits for the sentiment pass.
	var (
		wg          sync.WaitGroup
		sentiment   ai.SentimentResult
		category    ai.CategorySuggestion
		suggestions []string
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		sentiment = h.AI.AnalyzeSentiment(r.Context(), req.Title+". "+req.Description)
	}()
	go func() {
		defer wg.Done()
		category = h.AI.SuggestCategory(r.Context(), req.Title, req.Description)
	}()
	go func() {
		defer wg.Done()
		suggestions = h.AI.GenerateSuggestions(r.Context(), req.Title, req.Description)
	}()
	wg.Wait()
	priority := h.AI.SuggestPriority(r.Context(), req.Title, req.Description, sentiment.Score)

	grievanceCategory := req.Category
	if grievanceCategory == "" {
		grievanceCategory = category.Category
	}
	id, err := h.Store.CreateGrievance(r.Context(), store.Grievance{
		Title:          req.Title,
		Description:    req.Description,
		Category:       grievanceCategory,
		Priority:       priority.Priority,
		CitizenID:      principal.UserID,
		Attachment:     strings.TrimSpace(req.Attachment),
		SentimentScore: sentiment.Score,
		AISuggestions:  suggestions,
		AICategory:     category.Category,
		AIPriority:     priority.Priority,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	grievance, err := h.Store.GetGrievance(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.notify(r.Context(), queue.Notification{
		To:          principal.Email,
		Subject:     "Grievance received: " + grievance.Title,
		Body:        fmt.Sprintf("Dear %s,\n\nYour grievance %q has been registered and is pending review. You can track its status in the portal.\n\nJanata Grievance Portal", principal.Name, grievance.Title),
		GrievanceID: grievance.ID,
	})
	writeJSON(w, http.StatusCreated, grievance)
}

func (h *Handler) handleMyGrievances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, err := h.Auth.AuthenticateRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	grievances, err := h.Store.ListGrievancesByCitizen(r.Context(), principal.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if grievances == nil {
		grievances = []store.Grievance{}
	}
	writeJSON(w, http.StatusOK, grievances)
}

func (h *Handler) handleAllGrievances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.requireRole(r, auth.RoleAdmin, auth.RoleOfficer); err != nil {
		writeAuthError(w, err)
		return
	}
	grievances, err := h.Store.ListAllGrievances(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if grievances == nil {
		grievances = []store.Grievance{}
	}
	writeJSON(w, http.StatusOK, grievances)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.requireRole(r, auth.RoleAdmin); err != nil {
		writeAuthError(w, err)
		return
	}
	stats, err := h.Store.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleAssignGrievance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.requireRole(r, auth.RoleAdmin); err != nil {
		writeAuthError(w, err)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/grievances/assign/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing grievance id", http.StatusBadRequest)
		return
	}
	var req struct {
		OfficerID string `json:"officerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	req.OfficerID = strings.TrimSpace(req.OfficerID)
	if req.OfficerID == "" {
		http.Error(w, "missing officerId", http.StatusBadRequest)
		return
	}

	officer, err := h.Store.GetUserByID(r.Context(), req.OfficerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "officer not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if officer.Role != auth.RoleOfficer {
		http.Error(w, "assignee must be an officer", http.StatusBadRequest)
		return
	}

	if err := h.Store.AssignGrievance(r.Context(), id, officer.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "grievance not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	grievance, err := h.Store.GetGrievance(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.notify(r.Context(), queue.Notification{
		To:          officer.Email,
		Subject:     "Grievance assigned: " + grievance.Title,
		Body:        fmt.Sprintf("Dear %s,\n\nThe grievance %q has been assigned to you. Please review it in the portal.\n\nJanata Grievance Portal", officer.Name, grievance.Title),
		GrievanceID: grievance.ID,
	})
	writeJSON(w, http.StatusOK, grievance)
}

func (h *Handler) handleUpdateGrievance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, err := h.requireRole(r, auth.RoleOfficer, auth.RoleAdmin)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/grievances/update/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing grievance id", http.StatusBadRequest)
		return
	}
	var req struct {
		Status   string `json:"status"`
		Response string `json:"response"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	grievance, err := h.Store.GetGrievance(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "grievance not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// Officers may only touch grievances assigned to them.
	if principal.Role == auth.RoleOfficer && grievance.AssignedTo != principal.UserID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.Store.UpdateGrievanceProgress(r.Context(), id, req.Status, req.Response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	grievance, err = h.Store.GetGrievance(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if citizen, err := h.Store.GetUserByID(r.Context(), grievance.CitizenID); err == nil {
		h.notify(r.Context(), queue.Notification{
			To:          citizen.Email,
			Subject:     "Grievance update: " + grievance.Title,
			Body:        fmt.Sprintf("Dear %s,\n\nYour grievance %q is now %s.\n\nJanata Grievance Portal", citizen.Name, grievance.Title, grievance.Status),
			GrievanceID: grievance.ID,
		})
	}
	writeJSON(w, http.StatusOK, grievance)
}

func (h *Handler) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.Auth.AuthenticateRequest(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "missing text", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.AI.AnalyzeSentiment(r.Context(), req.Text))
}

func (h *Handler) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.Auth.AuthenticateRequest(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.AI.SuggestCategory(r.Context(), req.Title, req.Description))
}

func (h *Handler) handleSuggestPriority(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.Auth.AuthenticateRequest(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Title          string  `json:"title"`
		Description    string  `json:"description"`
		SentimentScore float64 `json:"sentimentScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.AI.SuggestPriority(r.Context(), req.Title, req.Description, req.SentimentScore))
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.Auth.AuthenticateRequest(r); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": h.AI.GenerateSuggestions(r.Context(), req.Title, req.Description)})
}

func (h *Handler) handleGenerateResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, err := h.requireRole(r, auth.RoleOfficer, auth.RoleAdmin); err != nil {
		writeAuthError(w, err)
		return
	}
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Priority    string `json:"priority"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"response": h.AI.GenerateResponse(r.Context(), req.Title, req.Description, req.Category, req.Priority)})
}

func (h *Handler) handleChatbot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	principal, err := h.Auth.AuthenticateRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Limiter != nil {
		if ok, retry := h.Limiter.Allow(principal.UserID, h.Config.Chat.RatePerMinute); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
	}
	var req struct {
		Message string       `json:"message"`
		History []ai.Message `json:"history"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "missing message", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reply": h.AI.ChatbotReply(r.Context(), req.Message, req.History)})
}

func (h *Handler) requireRole(r *http.Request, roles ...string) (auth.Principal, error) {
	principal, err := h.Auth.AuthenticateRequest(r)
	if err != nil {
		return auth.Principal{}, auth.ErrUnauthorized
	}
	if err := auth.RequireRole(principal, roles...); err != nil {
		return auth.Principal{}, err
	}
	return principal, nil
}

func (h *Handler) notify(ctx context.Context, n queue.Notification) {
	if h.Queue == nil || n.To == "" {
		return
	}
	if err := h.Queue.PushNotification(ctx, n); err != nil {
		log.Printf("queue notification for grievance %s: %v", n.GrievanceID, err)
	}
}

func validStatus(status string) bool {
	for _, s := range store.GrievanceStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrUnauthorized) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Error(w, "forbidden", http.StatusForbidden)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
