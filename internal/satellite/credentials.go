package satellite

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/geoplaque/satellite/internal/status"
)

// HashPassword bcrypt-hashes a profile's optional password, grounded on
// the teacher's credential package's use of bcrypt for the same purpose.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", status.Wrap("satellite.credentials.hash_password", status.ErrProfileAuthFailed, err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches a bcrypt hash produced
// by HashPassword.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// profileClaims is the JWT payload minted for a profile: just enough to
// identify it and when the credential was issued.
type profileClaims struct {
	jwt.RegisteredClaims
}

// IssueProfileJWT signs an HMAC JWT carrying profileID as the subject.
// This is a secondary credential handed back from profile creation (for
// companion tooling that authenticates outside the dialogue protocol's
// fixed-width token exchange); dialogue-level profile resolution still
// uses the 16-byte wire.Token scheme in store.go.
func IssueProfileJWT(secret []byte, profileID string) (string, error) {
	now := time.Now()
	claims := profileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(365 * 24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", status.Wrap("satellite.credentials.issue_profile_jwt", status.ErrProfileAuthFailed, err)
	}
	return signed, nil
}

// VerifyProfileJWT validates tokenString against secret and returns the
// profile id it carries.
func VerifyProfileJWT(secret []byte, tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &profileClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", status.New("satellite.credentials.verify_profile_jwt", status.ErrProfileAuthFailed)
	}
	claims, ok := parsed.Claims.(*profileClaims)
	if !ok {
		return "", status.New("satellite.credentials.verify_profile_jwt", status.ErrProfileAuthFailed)
	}
	return claims.Subject, nil
}
