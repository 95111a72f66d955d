package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heartline/auth"
	"heartline/handlers"
	"heartline/routes"
	"heartline/services/avatars"
	"heartline/services/messaging"
	"heartline/services/profiles"
	"heartline/services/users"
	"heartline/storage"
	"heartline/storetest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePresigner struct{}

func (fakePresigner) PresignPut(_ context.Context, bucket, key, _ string, _ time.Duration) (string, error) {
	return "https://acct.r2.cloudflarestorage.com/" + bucket + "/" + key + "?X-Amz-Signature=abc", nil
}

func (fakePresigner) PublicURL(key string) (string, error) {
	return "https://cdn.example.com/" + key, nil
}

var _ avatars.Presigner = (*storage.R2)(nil)

type testEnv struct {
	router        *gin.Engine
	users         *storetest.Users
	profiles      *storetest.Profiles
	conversations *storetest.Conversations
	messages      *storetest.Messages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	env := &testEnv{
		users:         storetest.NewUsers(),
		profiles:      storetest.NewProfiles(),
		conversations: storetest.NewConversations(),
		messages:      storetest.NewMessages(),
	}
	tokens := auth.NewTokenManager("test-secret", time.Hour)

	env.router = routes.SetupRouter(routes.Deps{
		Log:            log,
		AllowedOrigins: []string{"http://localhost:3000"},
		Tokens:         tokens,
		Users:          env.users,
		UserHandler: handlers.NewUserHandler(
			users.NewService(env.users, env.profiles, tokens, log), log),
		ProfileHandler: handlers.NewProfileHandler(
			profiles.NewService(env.profiles, log), log),
		MessagingHandler: handlers.NewMessagingHandler(
			messaging.NewService(env.conversations, env.messages, env.users, log), log),
		AvatarHandler: handlers.NewAvatarHandler(
			avatars.NewService(fakePresigner{}, env.profiles, time.Minute, log), log),
	})
	return env
}

type response struct {
	Code int
	Body map[string]any
}

func (r response) object(t *testing.T, key string) map[string]any {
	t.Helper()
	v, ok := r.Body[key].(map[string]any)
	require.True(t, ok, "response has no object %q: %v", key, r.Body)
	return v
}

func (r response) list(t *testing.T, key string) []any {
	t.Helper()
	v, ok := r.Body[key].([]any)
	require.True(t, ok, "response has no list %q: %v", key, r.Body)
	return v
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) response {
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
	e.router.ServeHTTP(w, req)

	res := response{Code: w.Code}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res.Body), w.Body.String())
	}
	return res
}

// register signs a user up and returns their token and id.
func (e *testEnv) register(t *testing.T, email string) (string, string) {
	t.Helper()
	res := e.do(t, http.MethodPost, "/users/register", "", gin.H{"email": email, "password": "pw12345"})
	require.Equal(t, http.StatusCreated, res.Code, res.Body)
	return res.Body["token"].(string), res.object(t, "user")["id"].(string)
}
