package jwks

// Gauge names reported after every installed key set.
const (
	MetricKeySetKeys      = "jwt_auth_key_set_keys"
	MetricKeySetRefreshed = "jwt_auth_key_set_refreshed_timestamp_seconds"
)

// Gauges receives key-set gauges. The root package's Metrics implementations
// satisfy it.
type Gauges interface {
	SetGauge(name string, value float64, tags map[string]string)
}

// record publishes the snapshot just installed. source is "network" or
// "store".
func (c *Cache) record(snap *snapshot, source string) {
	if c.gauges == nil {
		return
	}
	tags := map[string]string{"source": source}
	c.gauges.SetGauge(MetricKeySetKeys, float64(snap.set.Len()), tags)
	c.gauges.SetGauge(MetricKeySetRefreshed, float64(snap.fetchedAt.Unix()), tags)
}
