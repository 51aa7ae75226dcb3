package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// IdentityServer is an httptest fake of the forest-management identity service.
// Tokens are issued as "T1", "T2", ... in login order.
type IdentityServer struct {
	*httptest.Server

	mu       sync.Mutex
	users    map[string]*fakeUser
	tokens   map[string]string
	issued   int
	broken   map[string]bool
	requests []RecordedRequest
}

// RecordedRequest captures what the fake observed for one call.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	id       int64
	password string
	role     string
	enabled  bool
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// NewIdentityServer starts a fake with the admin/admin123 and user/user123 demo accounts.
// The server is closed through t.Cleanup.
func NewIdentityServer(t testing.TB) *IdentityServer {
	t.Helper()

	s := &IdentityServer{
		users:  map[string]*fakeUser{},
		tokens: map[string]string{},
		broken: map[string]bool{},
	}
	s.AddUser("admin", "admin123", "ADMIN")
	s.AddUser("user", "user123", "USER")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/auth/validate", s.handleValidate)
	mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)
	mux.HandleFunc("GET /api/trees", s.handleTrees)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the API root, e.g. http://127.0.0.1:1234/api.
func (s *IdentityServer) BaseURL() string { return s.URL + "/api" }

// AddUser registers or replaces an account.
func (s *IdentityServer) AddUser(username, password, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &fakeUser{id: int64(len(s.users) + 1), password: password, role: role, enabled: true}
}

// RevokeAll invalidates every issued token.
func (s *IdentityServer) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

// Break makes calls to path drop the connection without a response.
func (s *IdentityServer) Break(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[path] = true
}

// Requests returns a copy of all observed requests.
func (s *IdentityServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *IdentityServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		broken := s.broken[r.URL.Path]
		s.mu.Unlock()

		if broken {
			hj, ok := w.(http.Hijacker)
			if !ok {
				http.Error(w, "hijack unsupported", http.StatusInternalServerError)
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func (s *IdentityServer) actor(r *http.Request) (string, *fakeUser, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	name, ok := s.tokens[token]
	if !ok {
		return "", nil, false
	}
	return name, s.users[name], true
}

func (s *IdentityServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "登录失败: 请求格式错误"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	if !ok || u.password != req.Password {
		s.mu.Unlock()
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "登录失败: 用户名或密码错误"})
		return
	}
	s.issued++
	token := fmt.Sprintf("T%d", s.issued)
	s.tokens[token] = req.Username
	role := u.role
	s.mu.Unlock()

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "登录成功",
		Data: map[string]any{
			"token":     token,
			"username":  req.Username,
			"role":      role,
			"expiresIn": 86400,
		},
	})
}

func (s *IdentityServer) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Message: "登出成功"})
}

func (s *IdentityServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	name, u, ok := s.actor(r)
	if !ok {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "Token无效或已过期"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "Token有效",
		Data:    map[string]any{"valid": true, "username": name, "role": u.role},
	})
}

func (s *IdentityServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "密码重置失败: 请求格式错误"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[req.Username]
	if ok {
		u.password = req.NewPassword
	}
	s.mu.Unlock()

	if !ok {
		writeEnvelope(w, http.StatusBadRequest, envelope{Message: "密码重置失败: 用户不存在"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Message: "密码重置成功"})
}

func (s *IdentityServer) handleMe(w http.ResponseWriter, r *http.Request) {
	name, u, ok := s.actor(r)
	if !ok {
		writeEnvelope(w, http.StatusUnauthorized, envelope{Message: "Token无效或已过期"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "获取用户信息成功",
		Data: map[string]any{
			"id":          u.id,
			"username":    name,
			"role":        u.role,
			"enabled":     u.enabled,
			"createdAt":   "2024-01-01T08:00:00",
			"lastLoginAt": "2024-06-01T09:30:00",
		},
	})
}

func (s *IdentityServer) handleTrees(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.actor(r); !ok {
		writeEnvelope(w, http.StatusUnauthorized, envelope{Message: "未授权访问"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: []any{}})
}
