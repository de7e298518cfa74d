package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"flyte-gateway/internal/adapter/backend"
	"flyte-gateway/internal/adapter/cache"
	"flyte-gateway/internal/adapter/db/jsonfile"
	"flyte-gateway/internal/adapter/gin/handler"
	"flyte-gateway/internal/adapter/gin/middleware"
	"flyte-gateway/internal/adapter/markdown"
	"flyte-gateway/internal/usecase/payment"
	"flyte-gateway/internal/usecase/travel"
	"flyte-gateway/internal/usecase/user"
	"flyte-gateway/pkg/auth"
)

// fakeBackend answers like the travel backend: a chat reply with a payment
// link, and a charge that completes on the second check.
func fakeBackend(t *testing.T) *httptest.Server {
	var checks atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req backend.ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		content := "Hello " + req.User.FirstName
		if req.Messages[len(req.Messages)-1].Content == "book it" {
			content = "Pay here: https://commerce.coinbase.com/pay/CHG-42"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"session_id": "sess-1",
			"message":    map[string]string{"role": "assistant", "content": content},
		})
	})
	mux.HandleFunc("/api/check-payment", func(w http.ResponseWriter, r *http.Request) {
		if checks.Add(1) < 2 {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "completed",
			"message": map[string]string{"content": "Seat 12A confirmed"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) http.Handler {
	log := zaptest.NewLogger(t)

	repo, err := jsonfile.NewUserRepoJSON(filepath.Join(t.TempDir(), "users.json"), log, jsonfile.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	tokens := auth.NewTokenService("router-test-secret", time.Hour, "flyte-gateway")
	accountUC := user.New(repo, tokens, log, user.Options{HashPasswords: true})

	client, err := backend.NewClient(backend.Config{BaseURL: fakeBackend(t).URL}, log)
	require.NoError(t, err)

	watcher := payment.NewWatcher(client, cache.NewMemoryPaymentStatusStore(0), payment.Config{Interval: 10 * time.Millisecond}, log)
	t.Cleanup(watcher.Close)

	travelUC := travel.New(client, markdown.NewRenderer(), watcher, repo, log)
	limiter := middleware.NewRateLimiter(nil, middleware.RateLimiterConfig{Enabled: true, RequestsPerSecond: 100, BurstCapacity: 100}, log)

	return SetupRouter(
		handler.NewAccountHandler(accountUC, log),
		handler.NewTravelHandler(travelUC, watcher, log),
		limiter,
		tokens,
		Options{ServiceName: "flyte-gateway"},
		log,
	)
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestAccountFlow(t *testing.T) {
	r := newTestRouter(t)

	signup := map[string]string{
		"username":        "jane_doe",
		"email":           "Jane@Example.com",
		"given_name":      "Jane",
		"family_name":     "Doe",
		"title":           "ms",
		"gender":          "female",
		"born_on":         "1990-04-02",
		"phone_number":    "+14155552671",
		"password":        "correct horse",
		"confirmPassword": "correct horse",
	}
	w := do(t, r, http.MethodPost, "/api/signup", "", signup)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/signup", "", signup)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Username or email already exists")

	w = do(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "jane@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "jane@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		User  map[string]any `json:"user"`
		Token string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, "jane_doe", login.User["username"])
	assert.NotContains(t, login.User, "password")
	require.NotEmpty(t, login.Token)

	update := map[string]string{"originalUsername": "jane_doe", "given_name": "Janet"}

	w = do(t, r, http.MethodPost, "/api/update-user", "", update)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "tokens enabled, anonymous edit refused")

	w = do(t, r, http.MethodPost, "/api/update-user", login.Token, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"firstName":"Janet"`)

	w = do(t, r, http.MethodGet, "/api/users/jane_doe", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"firstName":"Janet"`)
	assert.Contains(t, w.Body.String(), `"lastName":"Doe"`)
}

func TestProfileRequiresOwnerToken(t *testing.T) {
	r := newTestRouter(t)

	for _, name := range []string{"jane_doe", "john_roe"} {
		w := do(t, r, http.MethodPost, "/api/signup", "", map[string]string{
			"username":     name,
			"email":        name + "@example.com",
			"given_name":   "Test",
			"family_name":  "Person",
			"title":        "mx",
			"gender":       "other",
			"born_on":      "1990-04-02",
			"phone_number": "+14155552671",
			"password":     "correct horse",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "jane_doe", "password": "correct horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = do(t, r, http.MethodGet, "/api/users/jane_doe", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "anonymous read refused")
	assert.NotContains(t, w.Body.String(), "jane_doe@example.com")

	w = do(t, r, http.MethodGet, "/api/users/john_roe", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "other account refused")
	assert.NotContains(t, w.Body.String(), "john_roe@example.com")

	w = do(t, r, http.MethodGet, "/api/users/jane_doe", login.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jane_doe@example.com")
}

func TestChatStartsPaymentWatch(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/chat", "", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Hello John", "demo profile injected")

	w = do(t, r, http.MethodPost, "/api/chat", "", map[string]any{
		"messages":   []map[string]string{{"role": "user", "content": "book it"}},
		"session_id": "sess-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var chat travel.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))
	assert.Equal(t, "CHG-42", chat.ChargeID)
	assert.Contains(t, chat.Message.HTML, `href="https://commerce.coinbase.com/pay/CHG-42"`)

	require.Eventually(t, func() bool {
		w := do(t, r, http.MethodGet, "/api/payments/CHG-42", "", nil)
		return w.Code == http.StatusOK && bytes.Contains(w.Body.Bytes(), []byte(`"status":"completed"`))
	}, 2*time.Second, 10*time.Millisecond)

	w = do(t, r, http.MethodGet, "/api/payments/CHG-42", "", nil)
	assert.Contains(t, w.Body.String(), "Seat 12A confirmed")
}
