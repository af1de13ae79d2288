package graph

// GraphTarget selects which graph a Command's effects apply to.
type GraphTarget struct {
	kind string // "current" | "parent" | "named"
	name string
}

// GraphCurrent targets the executing graph itself.
var GraphCurrent = GraphTarget{kind: "current"}

// GraphParent targets the embedding parent graph.
var GraphParent = GraphTarget{kind: "parent"}

// GraphNamed targets a registered sibling graph by name.
func GraphNamed(name string) GraphTarget { return GraphTarget{kind: "named", name: name} }

func (t GraphTarget) IsCurrent() bool { return t.kind == "current" || t.kind == "" }
func (t GraphTarget) IsParent() bool  { return t.kind == "parent" }
func (t GraphTarget) Named() (string, bool) {
	if t.kind == "named" {
		return t.name, true
	}
	return "", false
}

// Send is a dynamic task request: a target node and its bound input,
// enabling map-reduce fan-out.
type Send struct {
	Node  string `json:"node"`
	Input Value  `json:"input"`
}

// Command is the structured control value a node may return instead of a
// plain Value, directing state update, navigation, or interrupt
// resumption.
type Command struct {
	// Update is merged into state via the channel/reducer discipline, same
	// as a plain node return value would be.
	Update Value

	// Goto specifies the next hop(s): a node name, several node names, a
	// Send, or several Sends, expressed via Route.
	Goto *Route

	// Resume and ResumeByID hold resume values: either a single Value or a
	// map interrupt-id -> Value. The driver does not read these fields from
	// a node's returned Command; resume values reach nodes only through
	// Compiled.Resume/ResumeByID and RunContext.Resume.
	Resume       Value
	ResumeByID   map[string]Value

	// Graph selects which graph Update/Goto apply to.
	Graph GraphTarget
}

// IsZero reports whether c carries no instructions at all.
func (c *Command) IsZero() bool {
	return c == nil || (c.Update == nil && c.Goto == nil && c.Resume == nil && c.ResumeByID == nil)
}
