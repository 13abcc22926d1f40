package mexc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/akavalov/fairwatch/internal/venue"
)

// TimeSync tracks the offset between local and MEXC server time. Signed
// requests reject timestamps outside the venue's receive window, so the
// offset is measured once at startup and applied to every signed call.
type TimeSync struct {
	offsetMS atomic.Int64
}

// Sync fetches the server time and records the offset from local time.
func (t *TimeSync) Sync(ctx context.Context, http *venue.HTTPClient, serverTimeURL string) error {
	var resp apiServerTime
	if err := http.GetJSON(ctx, serverTimeURL, nil, nil, &resp); err != nil {
		return fmt.Errorf("mexc: time sync: %w", err)
	}
	if resp.ServerTime == 0 {
		return fmt.Errorf("mexc: time sync: empty server time")
	}
	t.offsetMS.Store(resp.ServerTime - time.Now().UnixMilli())
	return nil
}

// NowMS returns the current timestamp in milliseconds, server-adjusted.
func (t *TimeSync) NowMS() int64 {
	return time.Now().UnixMilli() + t.offsetMS.Load()
}
