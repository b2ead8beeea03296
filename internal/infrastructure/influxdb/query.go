package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sample is one recorded value of a property.
type Sample struct {
	Time  time.Time `json:"time"`
	Value any       `json:"value"`
}

// maxHistoryLimit caps the samples one query returns.
const maxHistoryLimit = 10000

// historyQuery builds the Flux query for the samples of path recorded in
// measurement since the given time, newest last.
func historyQuery(bucket, measurement, path string, since time.Time, limit int) string {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", strconv.Quote(bucket))
	fmt.Fprintf(&b, "  |> range(start: %s)\n", since.UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s and r._field == \"value\")\n", strconv.Quote(measurement))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r.path == %s)\n", strconv.Quote(path))
	b.WriteString("  |> sort(columns: [\"_time\"])\n")
	fmt.Fprintf(&b, "  |> tail(n: %d)", limit)
	return b.String()
}

// History returns the values recorded for the property at path since the
// given time. limit bounds the number of samples (0 means the maximum).
func (c *Client) History(ctx context.Context, measurement, path string, since time.Time, limit int) ([]Sample, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}
	result, err := c.queryAPI.Query(ctx, historyQuery(c.cfg.Bucket, measurement, path, since, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	defer result.Close()

	var samples []Sample
	for result.Next() {
		rec := result.Record()
		samples = append(samples, Sample{Time: rec.Time(), Value: rec.Value()})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}
	return samples, nil
}
