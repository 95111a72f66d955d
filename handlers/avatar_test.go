package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvatarUpload(t *testing.T) {
	env := newTestEnv(t)
	tokenA, idA := env.register(t, "a@x.com")
	_, idB := env.register(t, "b@x.com")

	res := env.do(t, http.MethodPost, "/profile/create", tokenA, gin.H{"name": "Ada", "age": 30, "gender": "female"})
	require.Equal(t, http.StatusCreated, res.Code)

	res = env.do(t, http.MethodPost, "/avatar/me/avatar/presign", tokenA, gin.H{"mime": "image/gif", "bucket": "avatars"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(t, http.MethodPost, "/avatar/me/avatar/presign", tokenA, gin.H{"mime": "image/png"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(t, http.MethodPost, "/avatar/me/avatar/presign", tokenA, gin.H{"mime": "image/png", "bucket": "avatars"})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	key := res.Body["key"].(string)
	url := res.Body["url"].(string)
	assert.Contains(t, key, idA)
	assert.Contains(t, res.Body["uploadUrl"], "X-Amz-Signature")
	assert.Equal(t, "https://cdn.example.com/"+key, url)

	foreignKey := "avatar/" + idB + "/stolen.png"
	res = env.do(t, http.MethodPost, "/avatar/me/avatar/confirm", tokenA, gin.H{
		"key": foreignKey,
		"url": "https://cdn.example.com/" + foreignKey,
	})
	assert.Equal(t, http.StatusForbidden, res.Code)
	profile := env.do(t, http.MethodGet, "/profile/me", tokenA, nil).object(t, "profile")
	assert.NotContains(t, profile, "avatar")

	res = env.do(t, http.MethodPost, "/avatar/me/avatar/confirm", tokenA, gin.H{"key": key, "url": "https://evil.example.com/x.png"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = env.do(t, http.MethodPost, "/avatar/me/avatar/confirm", tokenA, gin.H{"key": key, "url": url})
	require.Equal(t, http.StatusOK, res.Code, res.Body)
	assert.Equal(t, "Avatar saved", res.Body["message"])
	assert.Equal(t, url, res.object(t, "profile")["avatar"])
}
