// Package cache provides the advisory month-view cache. It is never a source
// of truth: readers fall through on any miss or error, writers are
// best-effort, and the toggle engine invalidates affected months.
package cache

import (
	"context"

	"github.com/google/uuid"
)

type MonthCache interface {
	GetMonth(ctx context.Context, userID uuid.UUID, year, month int) ([]byte, bool)
	SetMonth(ctx context.Context, userID uuid.UUID, year, month int, payload []byte)
	InvalidateMonth(ctx context.Context, userID uuid.UUID, year, month int)
}

// Noop satisfies MonthCache when no redis address is configured.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) GetMonth(context.Context, uuid.UUID, int, int) ([]byte, bool) { return nil, false }
func (Noop) SetMonth(context.Context, uuid.UUID, int, int, []byte)        {}
func (Noop) InvalidateMonth(context.Context, uuid.UUID, int, int)         {}
