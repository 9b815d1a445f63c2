// test/mocks/mocks.go

// Package mocks contains generated mocks for the application's interfaces.
// To regenerate mocks, run `make mocks` from the root directory.
package mocks

//go:generate mockgen -source=../../internal/core/ports/sale_service.go -destination=sale_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/core/ports/intake_service.go -destination=intake_service_mock.go -package=mocks
//go:generate mockgen -source=../../internal/adapters/storage/s3.go -destination=storage_mock.go -package=mocks
