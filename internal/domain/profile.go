// Package domain holds the small set of types shared by every module: the
// requesting profile and the calendar-date convention used for quotes,
// configurations and value history.
package domain

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ProfileHeader carries the id of the profile a request acts for.
// Authentication happens upstream; the header is trusted as-is.
const ProfileHeader = "X-Profile-ID"

// ErrNoProfile is returned when a request carries no profile id.
var ErrNoProfile = errors.New("no profile on request")

type profileKey struct{}

// WithProfile returns a copy of ctx carrying profile.
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileKey{}, profile)
}

// ProfileFromContext returns the profile stored by WithProfile.
func ProfileFromContext(ctx context.Context) (string, error) {
	profile, ok := ctx.Value(profileKey{}).(string)
	if !ok || profile == "" {
		return "", ErrNoProfile
	}
	return profile, nil
}

// ProfileMiddleware resolves the profile from ProfileHeader, falling back to
// defaultProfile, and stores it on the request context.
func ProfileMiddleware(defaultProfile string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile := strings.TrimSpace(r.Header.Get(ProfileHeader))
			if profile == "" {
				profile = defaultProfile
			}
			next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
		})
	}
}
