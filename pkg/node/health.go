package node

// Health is the connection state of a node handle. Transitions among
// NotConnected, Healthy and Broken are driven by the transport; Invalid is
// terminal and set only by the registry while retiring a handle.
type Health int32

const (
	HealthNotConnected Health = iota
	HealthHealthy
	HealthBroken
	HealthInvalid
)

func (h Health) String() string {
	switch h {
	case HealthNotConnected:
		return "not_connected"
	case HealthHealthy:
		return "healthy"
	case HealthBroken:
		return "broken"
	case HealthInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}
