// internal/handlers/event_test.go
package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// Banner uploads must fail cleanly when the storage service could not be
// initialized, instead of panicking on a nil client.
func TestUploadEventBannerWithoutStorage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewEventHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/events/"+uuid.NewString()+"/banner", nil)
	c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}
	c.Set("user_id", uuid.NewString())

	handler.UploadEventBanner(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
