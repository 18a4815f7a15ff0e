package api

import "github.com/sarchlab/tilecc/core"

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	backend     Backend
	parallelism int
}

// WithBackend sets the backend that compiles function bodies.
func (b DriverBuilder) WithBackend(backend Backend) DriverBuilder {
	b.backend = backend
	return b
}

// WithParallelism sets how many functions are compiled at the same time.
func (b DriverBuilder) WithParallelism(n int) DriverBuilder {
	b.parallelism = n
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	if b.backend == nil {
		b.backend = core.BackendBuilder{}.Build(name + ".Backend")
	}
	if b.parallelism == 0 {
		b.parallelism = 1
	}
	if b.parallelism < 0 {
		panic("parallelism must be positive")
	}

	return &driverImpl{
		name:        name,
		backend:     b.backend,
		parallelism: b.parallelism,
	}
}
