// Package routing implements the audio routing graph (nodes, Route/
// Duck/Sidechain connections) and the mixer that realizes it: insert
// buffers, sample-rate-matching resampling, duck/sidechain modulation
// and peak normalization into the master buffer.
//
// Node/Connection shape and route-chain semantics are pinned from the
// original engine's audio_graph.rs and mixer/mod.rs.
package routing

// MasterNode is the implicit bus every chain ultimately routes to,
// named "$master" per the $-prefixed special-variable convention; the
// original Rust mixer used a bare "master" string internally.
const MasterNode = "$master"

// ConnectionKind distinguishes a plain signal route from a
// ducking/sidechain modulation link.
type ConnectionKind int

const (
	Route ConnectionKind = iota
	Duck
	Sidechain
)

// Connection is one edge of the routing graph.
type Connection struct {
	Kind        ConnectionKind
	Source      string
	Destination string
	Gain        float64            // Route: linear gain applied on mixdown
	Params      map[string]float64 // Duck/Sidechain: threshold, ratio, attack, release
}

// Node is one named channel in the graph (an instrument bus, an effect
// group, or the master bus).
type Node struct {
	Name   string
	Alias  string
	Effects map[string]float64
}

// Graph is the full routing setup: declared nodes plus the Route/Duck/
// Sidechain connections between them.
type Graph struct {
	Nodes       map[string]Node
	Connections []Connection
}

// NewGraph returns an empty graph seeded with the master node, matching
// the original engine's AudioGraph::new (master_node pre-registered).
func NewGraph() *Graph {
	return &Graph{
		Nodes: map[string]Node{MasterNode: {Name: MasterNode}},
	}
}

// EnsureNode registers name if absent, matching register_insert's
// recursive "register parent if missing" behavior applied at the graph
// level instead of the mixer's insert level.
func (g *Graph) EnsureNode(name string) {
	if _, ok := g.Nodes[name]; !ok {
		g.Nodes[name] = Node{Name: name}
	}
}

// DeclareNode registers name (a RoutingNode statement) with its
// optional alias, leaving an already-registered node's effects intact
// so a later RoutingFx attachment is never clobbered by a redeclaration.
func (g *Graph) DeclareNode(name, alias string) {
	n, ok := g.Nodes[name]
	if !ok {
		n = Node{Name: name}
	}
	n.Alias = alias
	g.Nodes[name] = n
}

// SetInsertEffects attaches a RoutingFx effect map to target, registering
// the node first if it doesn't already exist.
func (g *Graph) SetInsertEffects(target string, effects map[string]float64) {
	g.EnsureNode(target)
	n := g.Nodes[target]
	n.Effects = effects
	g.Nodes[target] = n
}

// AddRoute registers a plain signal connection carrying the given linear
// gain; the collector passes a Route statement's "gain" effect, or 1.0
// when it has none.
func (g *Graph) AddRoute(source, destination string, gain float64) {
	g.EnsureNode(source)
	g.EnsureNode(destination)
	g.Connections = append(g.Connections, Connection{
		Kind: Route, Source: source, Destination: destination, Gain: gain,
	})
}

func (g *Graph) AddDuck(source, destination string, params map[string]float64) {
	g.EnsureNode(source)
	g.EnsureNode(destination)
	g.Connections = append(g.Connections, Connection{
		Kind: Duck, Source: source, Destination: destination, Params: params,
	})
}

func (g *Graph) AddSidechain(source, destination string, params map[string]float64) {
	g.EnsureNode(source)
	g.EnsureNode(destination)
	g.Connections = append(g.Connections, Connection{
		Kind: Sidechain, Source: source, Destination: destination, Params: params,
	})
}

// OutgoingRoutes returns every Route connection whose Source is name.
func (g *Graph) OutgoingRoutes(name string) []Connection {
	return g.filterConnections(Route, func(c Connection) bool { return c.Source == name })
}

// IncomingDucks returns every Duck connection whose Destination is name.
func (g *Graph) IncomingDucks(name string) []Connection {
	return g.filterConnections(Duck, func(c Connection) bool { return c.Destination == name })
}

// IncomingSidechains returns every Sidechain connection whose
// Destination is name.
func (g *Graph) IncomingSidechains(name string) []Connection {
	return g.filterConnections(Sidechain, func(c Connection) bool { return c.Destination == name })
}

func (g *Graph) filterConnections(kind ConnectionKind, pred func(Connection) bool) []Connection {
	var out []Connection
	for _, c := range g.Connections {
		if c.Kind == kind && pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// ParentOf resolves the single Route destination for name, used by
// RouteChain to walk towards the master bus. A node may only route to
// one destination at a time in the insert-chain sense (fan-out sends
// are modeled as Duck/Sidechain, not multiple Routes); if multiple
// Routes exist the first one registered wins, matching the original
// engine's insert-chain model where the parent is a single slot.
func (g *Graph) ParentOf(name string) (string, bool) {
	for _, c := range g.Connections {
		if c.Kind == Route && c.Source == name {
			return c.Destination, true
		}
	}
	return "", false
}

// RouteChain walks name's parent chain up to and including the master
// bus, breaking on a cycle (a node already visited) rather than
// looping forever, and always appending the master bus if the walk
// never reached it — matching mixer/mod.rs's route_chain.
func (g *Graph) RouteChain(name string) []string {
	chain := []string{name}
	visited := map[string]bool{name: true}
	current := name
	for {
		parent, ok := g.ParentOf(current)
		if !ok {
			break
		}
		if visited[parent] {
			break
		}
		chain = append(chain, parent)
		visited[parent] = true
		current = parent
	}
	if chain[len(chain)-1] != MasterNode {
		chain = append(chain, MasterNode)
	}
	return chain
}
