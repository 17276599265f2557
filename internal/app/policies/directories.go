package policies

import (
	"context"

	"shutterbook/internal/domain/shared/money"
)

// ClientDirectory answers whether a client reference exists.
type ClientDirectory interface {
	ClientExists(ctx context.Context, clientID string) (bool, error)
}

// ResourceDirectory answers whether a photographer exists.
type ResourceDirectory interface {
	ResourceExists(ctx context.Context, resourceID string) (bool, error)
}

// PackageCatalog resolves the effective price of a service package. The
// bool is false when the package is unknown or carries no price.
type PackageCatalog interface {
	PackagePrice(ctx context.Context, packageID string) (money.Money, bool, error)
}
