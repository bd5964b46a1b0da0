package linkgw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// LinkClaims prove to the dashboard backend that a wallet completed a
// provider login.
type LinkClaims struct {
	Wallet         string `json:"wallet"`
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Username       string `json:"username,omitempty"`
	jwt.StandardClaims
}

type LinkTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewLinkTokens(secret, issuer string, ttl time.Duration) *LinkTokens {
	return &LinkTokens{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (lt *LinkTokens) Issue(wallet, provider, providerUserID, username string) (string, error) {
	now := lt.now()
	claims := &LinkClaims{
		Wallet:         wallet,
		Provider:       provider,
		ProviderUserID: providerUserID,
		Username:       username,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    lt.issuer,
			Subject:   wallet,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(lt.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(lt.secret)
	if err != nil {
		return "", fmt.Errorf("sign link token: %w", err)
	}
	return signed, nil
}

func (lt *LinkTokens) Parse(tokenStr string) (*LinkClaims, error) {
	if tokenStr == "" {
		return nil, errors.New("empty link token")
	}
	claims := &LinkClaims{}
	jwtToken, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return lt.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !jwtToken.Valid {
		return nil, errors.New("invalid link token")
	}
	if lt.issuer != "" && !claims.VerifyIssuer(lt.issuer, true) {
		return nil, errors.New("link token issuer mismatch")
	}
	return claims, nil
}
