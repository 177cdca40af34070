package domain

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileMiddleware(t *testing.T) {
	var seen string
	handler := ProfileMiddleware("guest")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profile, err := ProfileFromContext(r.Context())
		require.NoError(t, err)
		seen = profile
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "guest", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ProfileHeader, " alice ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "alice", seen)
}

func TestProfileFromContext_Missing(t *testing.T) {
	_, err := ProfileFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestDates(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "2024-03-10", FormatDate(ts))
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Date(ts))

	parsed, err := ParseDate("2024-03-10")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(Date(ts)))

	_, err = ParseDate("10/03/2024")
	assert.Error(t, err)
}
