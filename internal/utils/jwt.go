package utils // package utils provides helpers for issuing and verifying bearer tokens

import (
    "errors"
    "fmt"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// claim checks.
var ErrInvalidToken = errors.New("invalid token")

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the JWT string.  Exp stores the expiration
// timestamp.  Customers send it in the Authorization header so their
// reservations carry a stable customer reference.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a subject.  The JWT
// includes the standard claims sub, exp and iat.
func NewAccessToken(secret, subject string, ttl time.Duration) (AccessToken, error) {
    if subject == "" {
        return AccessToken{}, errors.New("empty subject")
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.MapClaims{
        "sub": subject,
        "exp": exp.Unix(),
        "iat": now.Unix(),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseSubject verifies raw with secret and returns its subject.  Numeric
// subjects issued by older tokens are rendered in decimal.
func ParseSubject(secret, raw string) (string, error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Only HMAC signatures are accepted.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return "", ErrInvalidToken
    }
    switch sub := claims["sub"].(type) {
    case string:
        if sub != "" {
            return sub, nil
        }
    case float64:
        return strconv.FormatFloat(sub, 'f', -1, 64), nil
    }
    return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
}
