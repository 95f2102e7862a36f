package tado

import (
	"context"
	"fmt"
	"sync"
)

// OffsetStatusSuccess is the per-device result value for a write that
// completed without error. Any other value is an error description.
const OffsetStatusSuccess = "success"

// SetOffsets writes temperature offsets to multiple devices
// concurrently and reports a per-device outcome.
//
// The aggregate call never fails as a whole: each entry's failure is
// captured as that entry's result string, so one unreachable device
// cannot block updates to the rest of the home. The total wall-clock
// cost is roughly that of the slowest individual write.
func (c *Client) SetOffsets(ctx context.Context, offsets map[string]float64) map[string]string {
	results := make(map[string]string, len(offsets))
	if len(offsets) == 0 {
		return results
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for serial, offset := range offsets {
		wg.Add(1)
		go func(serial string, offset float64) {
			defer wg.Done()

			status := OffsetStatusSuccess
			if err := c.SetDeviceOffset(ctx, serial, offset); err != nil {
				c.logger.Error("failed to set device offset",
					"serial", serial,
					"offset", offset,
					"error", err,
				)
				status = fmt.Sprintf("error: %v", err)
			}

			mu.Lock()
			results[serial] = status
			mu.Unlock()
		}(serial, offset)
	}

	wg.Wait()
	return results
}
