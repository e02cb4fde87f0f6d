package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNotConfigured indica que no hay artefacto configurado.
var ErrNotConfigured = errors.New("model artifact not configured")

// Provider entrega el modelo compartido del proceso.
type Provider interface {
	Get(ctx context.Context) (Regressor, error)
}

// LoaderFunc carga un modelo desde su origen.
type LoaderFunc func(ctx context.Context) (Regressor, error)

// DefaultRetryInterval es la espera minima entre cargas fallidas.
const DefaultRetryInterval = 30 * time.Second

// LazyProvider carga el modelo en el primer uso. Las cargas concurrentes se
// colapsan en una sola. Tras una carga fallida, las llamadas devuelven el mismo
// error hasta que pasa retryInterval. Una vez cargado el modelo no cambia.
type LazyProvider struct {
	load          LoaderFunc
	retryInterval time.Duration
	logger        *zap.Logger
	now           func() time.Time
	group         singleflight.Group
	model         atomic.Pointer[loaded]

	mu       sync.Mutex
	lastErr  error
	failedAt time.Time
}

type loaded struct {
	r Regressor
}

// NewLazyProvider crea un provider con un loader arbitrario.
// retryInterval 0 reintenta la carga en cada llamada.
func NewLazyProvider(load LoaderFunc, retryInterval time.Duration, logger *zap.Logger) *LazyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryInterval < 0 {
		retryInterval = 0
	}
	return &LazyProvider{load: load, retryInterval: retryInterval, logger: logger, now: time.Now}
}

// NewFileProvider crea un provider que lee el artefacto en path.
// Con path vacio todas las llamadas devuelven ErrNotConfigured.
func NewFileProvider(path string, retryInterval time.Duration, logger *zap.Logger) *LazyProvider {
	path = strings.TrimSpace(path)
	return NewLazyProvider(func(context.Context) (Regressor, error) {
		if path == "" {
			return nil, ErrNotConfigured
		}
		return LoadFile(path)
	}, retryInterval, logger)
}

// NewStaticProvider envuelve un modelo ya construido.
func NewStaticProvider(r Regressor) *LazyProvider {
	p := NewLazyProvider(func(context.Context) (Regressor, error) { return r, nil }, 0, nil)
	p.model.Store(&loaded{r: r})
	return p
}

func (p *LazyProvider) Get(ctx context.Context) (Regressor, error) {
	if m := p.model.Load(); m != nil {
		return m.r, nil
	}
	if p.load == nil {
		return nil, ErrNotConfigured
	}
	if err := p.recentFailure(); err != nil {
		return nil, err
	}

	ch := p.group.DoChan("model", func() (interface{}, error) {
		if m := p.model.Load(); m != nil {
			return m.r, nil
		}
		// La carga no depende del contexto de quien llego primero.
		if err := p.recentFailure(); err != nil {
			return nil, err
		}
		r, err := p.load(context.WithoutCancel(ctx))
		if err != nil {
			p.logger.Warn("model load failed", zap.Duration("retry_in", p.retryInterval), zap.Error(err))
			p.mu.Lock()
			p.lastErr, p.failedAt = err, p.now()
			p.mu.Unlock()
			return nil, err
		}
		p.model.Store(&loaded{r: r})
		p.logger.Info("model loaded", zap.String("version", r.Version()))
		return r, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Regressor), nil
	}
}

// recentFailure devuelve el ultimo error de carga si todavia no vencio la espera.
func (p *LazyProvider) recentFailure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastErr == nil || p.retryInterval == 0 {
		return nil
	}
	if p.now().Sub(p.failedAt) < p.retryInterval {
		return p.lastErr
	}
	return nil
}
