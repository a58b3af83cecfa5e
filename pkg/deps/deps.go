// Package deps analyzes the module import graph of a program index.
package deps

import (
	"fmt"
	"sort"
	"strings"

	"oberon-xref/pkg/model"
)

type Options struct {
	Top             int
	Focus           string
	Depth           int
	Reverse         bool
	IncludeEdges    bool
	IncludeBuiltins bool
}

type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Alias string `json:"alias,omitempty"`
	// Builtin is set for imports of SYSTEM.
	Builtin bool `json:"builtin,omitempty"`
}

type NodeMetric struct {
	Node     string `json:"node"`
	Outgoing int    `json:"outgoing"`
	Incoming int    `json:"incoming"`
	Builtin  bool   `json:"builtin,omitempty"`
}

type Report struct {
	Root           string       `json:"root"`
	NodeCount      int          `json:"node_count"`
	EdgeCount      int          `json:"edge_count"`
	BuiltinEdges   int          `json:"builtin_edge_count"`
	TopOutgoing    []NodeMetric `json:"top_outgoing,omitempty"`
	TopIncoming    []NodeMetric `json:"top_incoming,omitempty"`
	Layers         [][]string   `json:"layers,omitempty"`
	Cyclic         []string     `json:"cyclic,omitempty"`
	Focus          string       `json:"focus,omitempty"`
	FocusDirection string       `json:"focus_direction,omitempty"`
	FocusDepth     int          `json:"focus_depth,omitempty"`
	FocusOutgoing  []string     `json:"focus_outgoing,omitempty"`
	FocusIncoming  []string     `json:"focus_incoming,omitempty"`
	FocusWalk      []string     `json:"focus_walk,omitempty"`
	Edges          []Edge       `json:"edges,omitempty"`
}

// Build derives the import graph report. Layers group modules so that every
// module only imports modules of earlier layers; layer 0 holds the modules
// without imports.
func Build(idx *model.Index, opts Options) (Report, error) {
	if idx == nil {
		return Report{}, fmt.Errorf("index is nil")
	}
	if opts.Top <= 0 {
		opts.Top = 10
	}
	if opts.Depth <= 0 {
		opts.Depth = 1
	}

	builtin := map[string]bool{}
	known := map[string]bool{}
	for _, m := range idx.Modules {
		known[m.Name] = true
		builtin[m.Name] = m.Builtin
	}

	nodes := map[string]bool{}
	edgeSet := map[string]Edge{}
	for _, m := range idx.Modules {
		if m.Builtin && !opts.IncludeBuiltins {
			continue
		}
		nodes[m.Name] = true
		for _, imp := range m.Imports {
			if builtin[imp.Module] && !opts.IncludeBuiltins {
				continue
			}
			edgeSet[m.Name+"->"+imp.Module] = Edge{
				From:    m.Name,
				To:      imp.Module,
				Alias:   aliasOf(imp),
				Builtin: builtin[imp.Module],
			}
		}
	}

	edges := make([]Edge, 0, len(edgeSet))
	for _, edge := range edgeSet {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From == edges[j].From {
			return edges[i].To < edges[j].To
		}
		return edges[i].From < edges[j].From
	})

	outgoing := map[string]int{}
	incoming := map[string]int{}
	builtinEdges := 0
	for _, edge := range edges {
		nodes[edge.To] = true
		outgoing[edge.From]++
		incoming[edge.To]++
		if edge.Builtin {
			builtinEdges++
		}
	}

	metric := func(node string) NodeMetric {
		return NodeMetric{Node: node, Outgoing: outgoing[node], Incoming: incoming[node], Builtin: builtin[node]}
	}
	outgoingList := make([]NodeMetric, 0, len(outgoing))
	for node := range outgoing {
		outgoingList = append(outgoingList, metric(node))
	}
	sortNodeMetrics(outgoingList, func(item NodeMetric) int { return item.Outgoing })
	if opts.Top < len(outgoingList) {
		outgoingList = outgoingList[:opts.Top]
	}
	incomingList := make([]NodeMetric, 0, len(incoming))
	for node := range incoming {
		incomingList = append(incomingList, metric(node))
	}
	sortNodeMetrics(incomingList, func(item NodeMetric) int { return item.Incoming })
	if opts.Top < len(incomingList) {
		incomingList = incomingList[:opts.Top]
	}

	report := Report{
		Root:         idx.Root,
		NodeCount:    len(nodes),
		EdgeCount:    len(edges),
		BuiltinEdges: builtinEdges,
		TopOutgoing:  outgoingList,
		TopIncoming:  incomingList,
	}
	report.Layers, report.Cyclic = layers(nodes, edges)

	if focus := strings.TrimSpace(opts.Focus); focus != "" {
		if !known[focus] {
			return Report{}, fmt.Errorf("unknown module %q", focus)
		}
		report.Focus = focus
		report.FocusDirection = "forward"
		if opts.Reverse {
			report.FocusDirection = "reverse"
		}
		report.FocusDepth = opts.Depth
		var out, in []string
		for _, edge := range edges {
			if edge.From == focus {
				out = append(out, edge.To)
			}
			if edge.To == focus {
				in = append(in, edge.From)
			}
		}
		sort.Strings(out)
		sort.Strings(in)
		report.FocusOutgoing = dedupeSorted(out)
		report.FocusIncoming = dedupeSorted(in)
		report.FocusWalk = walkFromFocus(edges, focus, opts.Depth, opts.Reverse)
	}

	if opts.IncludeEdges {
		report.Edges = edges
	}
	return report, nil
}

func aliasOf(imp model.Import) string {
	if imp.Alias == imp.Module {
		return ""
	}
	return imp.Alias
}

// layers peels off modules whose imports all lie in earlier layers. Modules
// left over sit on or behind an import cycle.
func layers(nodes map[string]bool, edges []Edge) ([][]string, []string) {
	pending := map[string]int{}
	users := map[string][]string{}
	for node := range nodes {
		pending[node] = 0
	}
	for _, edge := range edges {
		pending[edge.From]++
		users[edge.To] = append(users[edge.To], edge.From)
	}

	var out [][]string
	var current []string
	for node, n := range pending {
		if n == 0 {
			current = append(current, node)
		}
	}
	for len(current) > 0 {
		sort.Strings(current)
		out = append(out, current)
		var next []string
		for _, node := range current {
			delete(pending, node)
			for _, user := range users[node] {
				pending[user]--
				if pending[user] == 0 {
					next = append(next, user)
				}
			}
		}
		current = next
	}

	var cyclic []string
	for node := range pending {
		cyclic = append(cyclic, node)
	}
	sort.Strings(cyclic)
	return out, cyclic
}

func walkFromFocus(edges []Edge, start string, depth int, reverse bool) []string {
	if depth <= 0 {
		return nil
	}

	adjacency := map[string][]string{}
	for _, edge := range edges {
		from, to := edge.From, edge.To
		if reverse {
			from, to = to, from
		}
		adjacency[from] = append(adjacency[from], to)
	}
	for key := range adjacency {
		sort.Strings(adjacency[key])
		adjacency[key] = dedupeSorted(adjacency[key])
	}

	type levelNode struct {
		name  string
		depth int
	}
	queue := []levelNode{{name: start}}
	visited := map[string]bool{start: true}
	var out []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.depth >= depth {
			continue
		}
		for _, next := range adjacency[current.name] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, levelNode{name: next, depth: current.depth + 1})
		}
	}
	return out
}

func sortNodeMetrics(items []NodeMetric, metric func(NodeMetric) int) {
	sort.Slice(items, func(i, j int) bool {
		left, right := metric(items[i]), metric(items[j])
		if left == right {
			return items[i].Node < items[j].Node
		}
		return left > right
	})
}

func dedupeSorted(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := items[:1]
	for _, item := range items[1:] {
		if item != out[len(out)-1] {
			out = append(out, item)
		}
	}
	return out
}
