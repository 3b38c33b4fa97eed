package bootstrap

import "context"

// Storage is whatever persistence handle a bot hands to its seeders and
// service providers; bootstrap never inspects it.
type Storage any

// Seeder writes startup data (for example configured admins) into storage.
type Seeder interface {
	Seed(ctx context.Context, storage Storage) error
}

// SeederFunc lets a plain function act as a Seeder.
type SeederFunc func(ctx context.Context, storage Storage) error

// Seed calls f.
func (f SeederFunc) Seed(ctx context.Context, storage Storage) error {
	return f(ctx, storage)
}

// ServiceProvider builds application services once storage is ready.
type ServiceProvider interface {
	Provide(ctx context.Context, cfg any, storage Storage) (any, error)
}

// TypedServiceProvider is a ServiceProvider whose result type is known.
type TypedServiceProvider[T any] interface {
	ServiceProvider
	ProvideTyped(ctx context.Context, cfg any, storage Storage) (T, error)
}

// TypedServiceProviderFunc adapts a typed constructor to both interfaces.
type TypedServiceProviderFunc[T any] func(ctx context.Context, cfg any, storage Storage) (T, error)

// Provide calls f and boxes the result.
func (f TypedServiceProviderFunc[T]) Provide(ctx context.Context, cfg any, storage Storage) (any, error) {
	return f(ctx, cfg, storage)
}

// ProvideTyped calls f.
func (f TypedServiceProviderFunc[T]) ProvideTyped(ctx context.Context, cfg any, storage Storage) (T, error) {
	return f(ctx, cfg, storage)
}

// Modules groups the optional steps run after infrastructure is up.
type Modules struct {
	// Storage builds the handle passed to Seeders and Services.
	Storage  func(ctx context.Context, res *Result) (Storage, error)
	Seeders  []Seeder
	Services ServiceProvider
}
