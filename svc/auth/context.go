package auth

import "context"

type storeContextKey struct{}

// WithStore stores s in ctx for the handlers of the current request.
func WithStore(ctx context.Context, s *Store) context.Context {
	return context.WithValue(ctx, storeContextKey{}, s)
}

// StoreFromContext returns the request's store or nil.
func StoreFromContext(ctx context.Context) *Store {
	s, _ := ctx.Value(storeContextKey{}).(*Store)
	return s
}

// PrincipalFromContext returns the signed-in principal or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	s := StoreFromContext(ctx)
	if s == nil {
		return nil
	}
	return s.Snapshot().Principal
}
