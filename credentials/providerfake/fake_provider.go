package providerfake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-publish-agent/credentials"
	"github.com/jrsteele09/go-publish-agent/tokenstore"
)

var _ credentials.Provider = &FakeProvider{}

var ErrTokenRejected = errors.New("fake provider: token rejected")

// FakeProvider accepts the access tokens in Live and answers refreshes with RefreshResult.
type FakeProvider struct {
	mu sync.Mutex

	Live          map[string]bool
	RefreshResult tokenstore.Pair
	RefreshErr    error

	// ProbeGate, when set, holds every probe until it is closed or the probe's context ends.
	// ProbeEntered receives once per probe that reaches the gate.
	ProbeGate    chan struct{}
	ProbeEntered chan struct{}

	ProbeCalls   []string
	RefreshCalls []string
}

func New() *FakeProvider {
	return &FakeProvider{Live: make(map[string]bool)}
}

func (f *FakeProvider) Probe(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	f.ProbeCalls = append(f.ProbeCalls, accessToken)
	gate, entered := f.ProbeGate, f.ProbeEntered
	live := f.Live[accessToken]
	f.mu.Unlock()

	if gate != nil {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if live {
		return nil
	}
	return ErrTokenRejected
}

func (f *FakeProvider) Refresh(_ context.Context, refreshToken string) (tokenstore.Pair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RefreshCalls = append(f.RefreshCalls, refreshToken)
	if f.RefreshErr != nil {
		return tokenstore.Pair{}, f.RefreshErr
	}
	return f.RefreshResult, nil
}

func (f *FakeProvider) RefreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.RefreshCalls)
}
