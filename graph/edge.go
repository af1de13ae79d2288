package graph

// Edge is a direct, unconditional control-flow connection. It is not
// compiled into a trigger: when From returns without an explicit Goto, the
// driver turns each of From's edges into a Send to To on the dynamic tasks
// channel.
type Edge struct {
	From string
	To   string
}

// RouteKind tags which shape a Router returned.
type RouteKind int

const (
	RouteNode RouteKind = iota
	RouteNodes
	RouteSend
	RouteSends
)

// Route is the small sum type a conditional edge's Router returns: a single
// node name, a list of node names, one Send, or a list of Sends.
type Route struct {
	Kind  RouteKind
	Node  string
	Nodes []string
	Send  Send
	Sends []Send
}

// ToNode returns a Route selecting a single node.
func ToNode(name string) Route { return Route{Kind: RouteNode, Node: name} }

// ToNodes returns a Route fanning out to several nodes unconditionally.
func ToNodes(names ...string) Route { return Route{Kind: RouteNodes, Nodes: names} }

// ToSend returns a Route dispatching one dynamic task.
func ToSend(s Send) Route { return Route{Kind: RouteSend, Send: s} }

// ToSends returns a Route dispatching several dynamic tasks (map-reduce fan-out).
func ToSends(sends ...Send) Route { return Route{Kind: RouteSends, Sends: sends} }

// Router inspects a node's output Value and decides the next hop(s). It is
// invoked when the source node's return value is converted into writes,
// right after the node returns, not at build time.
type Router func(output Value) Route

// ConditionalEdge wires From's Router against an allowed label set used
// only for build-time validation; the Router's
// actual Route at runtime need not come from Branches' keys when it
// returns Send/Sends.
type ConditionalEdge struct {
	From     string
	Router   Router
	Branches map[string]string // label -> node, validated to exist
}
