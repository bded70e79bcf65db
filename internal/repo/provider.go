package repo

import (
	"context"
	"errors"
	"sync"
)

// Provider hands out the process-wide Store, opening it on first use. A failed
// open is not remembered, so the next caller tries again.
type Provider struct {
	mu    sync.Mutex
	open  func(ctx context.Context) (Store, error)
	store Store
}

func NewProvider(open func(ctx context.Context) (Store, error)) (*Provider, error) {
	if open == nil {
		return nil, errors.New("store opener is nil")
	}

	return &Provider{open: open}, nil
}

// NewStaticProvider wraps an already open store.
func NewStaticProvider(store Store) *Provider {
	return &Provider{store: store}
}

func (p *Provider) Store(ctx context.Context) (Store, error) {
	if p == nil {
		return nil, errors.New("store provider is nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		return p.store, nil
	}
	if p.open == nil {
		return nil, errors.New("store opener is nil")
	}

	store, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	p.store = store

	return store, nil
}

func (p *Provider) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	err := p.store.Close(ctx)
	p.store = nil

	return err
}

// Ping opens the store if needed and checks the connection.
func (p *Provider) Ping(ctx context.Context) error {
	store, err := p.Store(ctx)
	if err != nil {
		return err
	}

	return store.Ping(ctx)
}
