// Package auth validates the bearer tokens callers present to the
// registry API. Tokens are either signed with a shared local secret or
// verified against a remote JWKS endpoint.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
	"github.com/lestrrat-go/jwx/jwt"

	"github.com/d4l-data4life/go-svc/pkg/logging"
)

var (
	ErrNoKeyRegistry   = errors.New("no remote key registry configured")
	ErrInvalidJWTKey   = errors.New("invalid JWT key")
	ErrTokenValidation = errors.New("token validation failed")
)

// TokenValidator checks a raw JWT and returns its parsed claims.
type TokenValidator interface {
	ValidateJWT(token string) (*jwt.Token, error)
}

// NewValidator picks the validator matching the configuration: a JWKS
// URL wins over a local secret.
func NewValidator(ctx context.Context, jwksURL, jwtSecret string) (TokenValidator, error) {
	if jwksURL != "" {
		return NewRemoteKeyStore(ctx, jwksURL)
	}
	return NewLocalJWTValidator([]byte(jwtSecret))
}

// LocalJWTValidator validates JWTs signed with a shared HS256 secret.
type LocalJWTValidator struct {
	jwtSecret []byte
}

func NewLocalJWTValidator(jwtSecret []byte) (*LocalJWTValidator, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrInvalidJWTKey
	}
	return &LocalJWTValidator{jwtSecret: jwtSecret}, nil
}

func (v *LocalJWTValidator) ValidateJWT(token string) (*jwt.Token, error) {
	t, err := jwt.Parse(
		[]byte(token),
		jwt.WithValidate(true),
		jwt.WithVerify(jwa.HS256, v.jwtSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenValidation, err)
	}
	return &t, nil
}

// RemoteKeyStore validates JWTs against a refreshing remote key set.
type RemoteKeyStore struct {
	keyStore *jwk.AutoRefresh
	uri      string
}

func NewRemoteKeyStore(ctx context.Context, uri string) (*RemoteKeyStore, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("key store URL must use HTTPS protocol")
	}

	ks := RemoteKeyStore{
		keyStore: jwk.NewAutoRefresh(ctx),
		uri:      uri,
	}
	ks.keyStore.Configure(ks.uri)

	set, err := ks.keyStore.Refresh(ctx, ks.uri)
	if err != nil {
		return nil, err
	}
	logging.LogInfofCtx(ctx, "remote key store initialized, retrieved %d keys", set.Len())

	return &ks, nil
}

func (ks *RemoteKeyStore) ValidateJWT(token string) (*jwt.Token, error) {
	if ks.keyStore == nil {
		return nil, ErrNoKeyRegistry
	}

	// Fetch honors the HTTP cache headers of the keys endpoint, so this
	// does not hit the network on every call.
	set, err := ks.keyStore.Fetch(context.Background(), ks.uri)
	if err != nil {
		return nil, err
	}

	t, err := jwt.Parse([]byte(token),
		jwt.WithValidate(true),
		jwt.InferAlgorithmFromKey(true),
		jwt.WithKeySet(set))
	if err != nil {
		return nil, err
	}
	return &t, nil
}
