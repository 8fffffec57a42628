package query

import "context"

// Wrap adapts a typed fetch function to a Fetcher.
func Wrap[T any](fn func(context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		return fn(ctx)
	}
}

// Get is Read with a typed result. A missing or mistyped value yields T's
// zero value.
func Get[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	value, err := s.Read(ctx, key, Wrap(fn))
	out, _ := value.(T)
	return out, err
}

// Fetch is Refetch with a typed result.
func Fetch[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	value, err := s.Refetch(ctx, key, Wrap(fn))
	out, _ := value.(T)
	return out, err
}

// Cached is Peek with a typed value. ok is false until a value of type T
// has been stored.
func Cached[T any](s *Store, key Key) (T, Entry, bool) {
	entry, _ := s.Peek(key)
	out, ok := entry.Value.(T)
	return out, entry, ok && entry.HasValue
}
