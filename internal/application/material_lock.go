package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrMaterialLockTimeout is returned when a material lock could not be acquired in time
var ErrMaterialLockTimeout = errors.New("timed out acquiring material lock")

// ReleaseFunc gives a material lock back. Calling it more than once is a no-op.
type ReleaseFunc func(ctx context.Context) error

// MaterialLocker serializes commit attempts on one material
type MaterialLocker interface {
	LockMaterial(ctx context.Context, materialID string) (ReleaseFunc, error)
}

// LocalMaterialLocker is an in-process keyed mutex. It only protects a single instance.
type LocalMaterialLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalMaterialLocker creates an in-process material locker
func NewLocalMaterialLocker() *LocalMaterialLocker {
	return &LocalMaterialLocker{locks: make(map[string]*keyLock)}
}

// LockMaterial blocks until the material is free or ctx is done
func (l *LocalMaterialLocker) LockMaterial(ctx context.Context, materialID string) (ReleaseFunc, error) {
	kl := l.acquireRef(materialID)

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.releaseRef(materialID, kl)
		return nil, fmt.Errorf("%w %s: %w", ErrMaterialLockTimeout, materialID, ctx.Err())
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-kl.sem
			l.releaseRef(materialID, kl)
		})
		return nil
	}, nil
}

func (l *LocalMaterialLocker) acquireRef(materialID string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[materialID]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[materialID] = kl
	}
	kl.refs++
	return kl
}

func (l *LocalMaterialLocker) releaseRef(materialID string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, materialID)
	}
}

// held reports how many materials currently have holders or waiters
func (l *LocalMaterialLocker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
