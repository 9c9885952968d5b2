package utils

import (
	"errors"
	"fmt"
	"time"

	"mediaworker/models"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
)

var (
	ErrInvalidToken     = errors.New("invalid token format")
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token not yet valid")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidIssuer    = errors.New("invalid issuer")
	ErrTokenScope       = errors.New("token does not cover this object")
)

// VerifyConfig holds verification configuration
type VerifyConfig struct {
	SecretKey      []byte        // For HMAC (HS256)
	PublicKey      any           // For RSA (RS256) - *rsa.PublicKey
	ExpectedIssuer string        // Optional: validate issuer
	ClockSkew      time.Duration // Optional: allow clock skew (default 0)
}

// parseSigned verifies the token signature and decodes its claims into out.
func parseSigned(tokenString string, config VerifyConfig, out any) error {
	if tokenString == "" {
		return ErrInvalidToken
	}

	var allowedAlgs []jose.SignatureAlgorithm
	if config.SecretKey != nil {
		allowedAlgs = append(allowedAlgs, jose.HS256)
	}
	if config.PublicKey != nil {
		allowedAlgs = append(allowedAlgs, jose.RS256)
	}
	if len(allowedAlgs) == 0 {
		return errors.New("no verification key provided")
	}

	tok, err := jwt.ParseSigned(tokenString, allowedAlgs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var verifyErr error
	if config.SecretKey != nil {
		verifyErr = tok.Claims(config.SecretKey, out)
	} else {
		verifyErr = tok.Claims(config.PublicKey, out)
	}
	if verifyErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, verifyErr)
	}
	return nil
}

// VerifyWorkerJWT verifies a job submission token and returns its claims.
func VerifyWorkerJWT(tokenString string, config VerifyConfig) (*models.WorkerJWT, error) {
	claims := &models.WorkerJWT{}
	if err := parseSigned(tokenString, config, claims); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	clockSkew := int64(config.ClockSkew.Seconds())

	if claims.ExpiresAt > 0 && claims.ExpiresAt < (now-clockSkew) {
		return nil, ErrTokenExpired
	}
	if claims.IssuedAt > 0 && claims.IssuedAt > (now+clockSkew) {
		return nil, ErrTokenNotYetValid
	}
	if config.ExpectedIssuer != "" && claims.Issuer != config.ExpectedIssuer {
		return nil, fmt.Errorf("%w: expected '%s', got '%s'",
			ErrInvalidIssuer, config.ExpectedIssuer, claims.Issuer)
	}
	return claims, nil
}

// signHS256 serializes claims as a compact HS256 JWT.
func signHS256(secret []byte, claims any) (string, error) {
	if claims == nil {
		return "", errors.New("claims cannot be nil")
	}
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: secret}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create signer: %w", err)
	}
	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("failed to create JWT: %w", err)
	}
	return token, nil
}

// CreateWorkerJWT signs job submission claims with the shared secret.
func CreateWorkerJWT(secret []byte, claims *models.WorkerJWT) (string, error) {
	if claims == nil {
		return "", errors.New("claims cannot be nil")
	}
	return signHS256(secret, claims)
}

// SignServeToken mints a download token for one stored object.
func SignServeToken(secret []byte, bucket, key string, expires time.Time) (string, error) {
	return signHS256(secret, &models.ServeClaims{
		Bucket:    bucket,
		Key:       key,
		ExpiresAt: expires.Unix(),
	})
}

// VerifyServeToken checks that token authorizes reading bucket/key right now.
func VerifyServeToken(secret []byte, token, bucket, key string) error {
	claims := &models.ServeClaims{}
	if err := parseSigned(token, VerifyConfig{SecretKey: secret}, claims); err != nil {
		return err
	}
	if claims.ExpiresAt < time.Now().Unix() {
		return ErrTokenExpired
	}
	if claims.Bucket != bucket || claims.Key != key {
		return ErrTokenScope
	}
	return nil
}
