package observerproto

import "factorycraft.ai/internal/sim/routes"

// Version is the route observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe  = "SUBSCRIBE"
	TypeHello      = "HELLO"
	TypeRouteEvent = "ROUTE_EVENT"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the filter. Empty lists mean "everything".
type SubscribeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	Worlds          []string `json:"worlds,omitempty"`
	Kinds           []string `json:"kinds,omitempty"`
}

// Server -> Client. Sent once after a valid SUBSCRIBE.
type HelloMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	Worlds          []string `json:"worlds"`
}

// Server -> Client. One per route build or removal.
type RouteEventMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Event           routes.EventRecord `json:"event"`
}

// HTTP response for GET /admin/v1/routes.
type RoutesResponse struct {
	ProtocolVersion string          `json:"protocol_version"`
	WorldID         string          `json:"world_id"`
	Tick            uint64          `json:"tick"`
	Routes          []routes.Record `json:"routes"`
}
