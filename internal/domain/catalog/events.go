package catalog

import "time"

// ProductSyncedEvent is raised when sync rewrites a product from the catalog.
type ProductSyncedEvent struct {
	ProductID uint
	Name      string
	SyncedAt  time.Time
}

func (e ProductSyncedEvent) EventName() string     { return "product.synced" }
func (e ProductSyncedEvent) OccurredAt() time.Time { return e.SyncedAt }
