package backendsvc

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo reports the subject and expiry carried by a bearer token
// without verifying its signature; verification is the server's job. The
// cached token is still trusted until the first authenticated call fails.
func TokenInfo(token string) (subject string, expiresAt time.Time, err error) {
	claims := jwt.MapClaims{}
	if _, _, err = jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", time.Time{}, err
	}
	subject, _ = claims.GetSubject()
	if exp, expErr := claims.GetExpirationTime(); expErr == nil && exp != nil {
		expiresAt = exp.Time
	}
	return subject, expiresAt, nil
}
