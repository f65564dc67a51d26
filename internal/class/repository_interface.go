package class

import (
	"context"
	"time"

	"github.com/Gio21sr/oberfit/internal/config"
)

type Repository interface {
	Create(ctx context.Context, c *Class) (*Class, error)
	Update(ctx context.Context, c *Class) (*Class, error)
	Delete(ctx context.Context, id int, policy config.DeletePolicy, now time.Time) (*DeleteResult, error)
	GetByID(ctx context.Context, id int) (*Class, error)
	List(ctx context.Context) ([]Class, error)
	ListUpcoming(ctx context.Context, now time.Time) ([]Class, error)
	SlotTaken(ctx context.Context, startTime time.Time, excludeID int) (bool, error)
}
