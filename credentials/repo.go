package credentials

import (
	"context"

	"github.com/jrsteele09/go-publish-agent/tokenstore"
)

// Store persists the credential pair. *tokenstore.FileStore implements it.
type Store interface {
	Persist(pair tokenstore.Pair, passphrase string) error
	Load(passphrase string) (tokenstore.Pair, error)
	Exists() bool
}

// Prober checks whether an access token is still accepted by the provider.
type Prober interface {
	Probe(ctx context.Context, accessToken string) error
}

// Refresher redeems a refresh token at the provider's token endpoint.
// The returned pair's RefreshToken is empty when the provider did not rotate it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (tokenstore.Pair, error)
}

type Provider interface {
	Prober
	Refresher
}
