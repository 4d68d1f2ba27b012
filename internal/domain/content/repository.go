package content

import "context"

// Repository gives access to the fixed set of curriculum slots.
type Repository interface {
	GetByNumber(ctx context.Context, number int) (*Slot, error)
	ListAll(ctx context.Context) ([]*Slot, error) // Ordered by slot number
	Update(ctx context.Context, slot *Slot) error // Writes body and send time
	EnsureSlots(ctx context.Context, total int) (created int, err error)
}
