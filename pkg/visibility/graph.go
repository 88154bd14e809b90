package visibility

// Graph maps a watched field to the fields and groups whose visibility depends
// on it. It is built once when metadata is parsed and queried on every edit;
// there is deliberately no rescan path.
type Graph struct {
	dependents map[string][]string
}

// NewGraph returns an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{dependents: make(map[string][]string)}
}

// Add records that dependentID's visibility is a function of watchField.
// Duplicate edges are ignored.
func (g *Graph) Add(watchField, dependentID string) {
	if watchField == "" || dependentID == "" || watchField == dependentID {
		return
	}
	for _, existing := range g.dependents[watchField] {
		if existing == dependentID {
			return
		}
	}
	g.dependents[watchField] = append(g.dependents[watchField], dependentID)
}

// Direct returns the immediate dependents of fieldID in insertion order.
func (g *Graph) Direct(fieldID string) []string {
	if g == nil {
		return nil
	}
	deps := g.dependents[fieldID]
	if len(deps) == 0 {
		return nil
	}
	return append([]string(nil), deps...)
}

// Dependents returns every field reachable from fieldID through watch edges,
// in breadth-first order. Cycles terminate because visited nodes are not
// re-enqueued; fieldID itself is excluded.
func (g *Graph) Dependents(fieldID string) []string {
	if g == nil || len(g.dependents[fieldID]) == 0 {
		return nil
	}
	var out []string
	seen := map[string]bool{fieldID: true}
	queue := append([]string(nil), g.dependents[fieldID]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		out = append(out, next)
		queue = append(queue, g.dependents[next]...)
	}
	return out
}
