package memory

import (
	"context"
	"sync"

	"shutterbook/internal/app/policies"
	"shutterbook/internal/domain/shared/money"
)

// Directory is an in-memory client, photographer and package registry.
type Directory struct {
	mu        sync.RWMutex
	clients   map[string]string
	resources map[string]string
	packages  map[string]*money.Money
}

func NewDirectory() *Directory {
	return &Directory{
		clients:   make(map[string]string),
		resources: make(map[string]string),
		packages:  make(map[string]*money.Money),
	}
}

func (d *Directory) AddClient(ctx context.Context, id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clients[id] = name
	return nil
}

func (d *Directory) AddResource(ctx context.Context, id, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resources[id] = name
	return nil
}

func (d *Directory) RetireResource(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.resources, id)
	return nil
}

// AddPackage registers a package; a nil price means the package has none.
func (d *Directory) AddPackage(ctx context.Context, id, name string, price *money.Money) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.packages[id] = price
	return nil
}

func (d *Directory) ClientExists(ctx context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.clients[id]
	return ok, nil
}

func (d *Directory) ResourceExists(ctx context.Context, id string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.resources[id]
	return ok, nil
}

func (d *Directory) PackagePrice(ctx context.Context, id string) (money.Money, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	price, ok := d.packages[id]
	if !ok || price == nil {
		return money.Money{}, false, nil
	}
	return *price, true, nil
}

var (
	_ policies.ClientDirectory   = (*Directory)(nil)
	_ policies.ResourceDirectory = (*Directory)(nil)
	_ policies.PackageCatalog    = (*Directory)(nil)
)
