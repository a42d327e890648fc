package render

import (
	"fmt"
	"sort"
	"strings"

	"ppc2c/internal/disasm"
)

// Provenance categories of a call edge.
const (
	ProvDirect     = "direct"
	ProvTOC        = "toc"
	ProvRegister   = "register"
	ProvUnresolved = "unresolved"
)

// ClassifyEdgeProv returns the provenance category for a call edge.
func ClassifyEdgeProv(e disasm.CallEdgeRecord) string {
	switch {
	case e.Kind == "bl":
		return ProvDirect
	case strings.HasPrefix(e.Via, "TOC"):
		return ProvTOC
	case e.Via != "":
		return ProvRegister
	}
	return ProvUnresolved
}

func edgeColor(prov string, t Theme) string {
	switch prov {
	case ProvTOC:
		return t.EdgeTOC
	case ProvRegister:
		return t.EdgeRegister
	case ProvUnresolved:
		return t.EdgeUnresolved
	}
	return t.EdgeDirect
}

// calleeOf names the node an edge points at, or "" for an indirect call
// with no provenance.
func calleeOf(e disasm.CallEdgeRecord) string {
	if e.Target != "" {
		return e.Target
	}
	return e.Via
}

// FindEntryPoints returns functions that have no incoming bl edges.
// Synthesised sub_ names are excluded since they are callees, not true
// entry points.
func FindEntryPoints(funcs []disasm.FuncRecord, edges []disasm.CallEdgeRecord) []string {
	blTargets := make(map[string]bool)
	for _, e := range edges {
		if e.Kind == "bl" && e.Target != "" {
			blTargets[e.Target] = true
		}
	}

	var entries []string
	for _, f := range funcs {
		if strings.HasPrefix(f.Name, "sub_") {
			continue
		}
		if !blTargets[f.Name] {
			entries = append(entries, f.Name)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet performs BFS from entry points following bl edges
// and returns the set of all reachable function names.
func ReachableSet(entryPoints []string, edges []disasm.CallEdgeRecord) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range edges {
		if e.Kind == "bl" && e.Target != "" {
			adj[e.FromFunc] = append(adj[e.FromFunc], e.Target)
		}
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}

	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}

// ReachabilityDOT renders the call graph restricted to callers in the
// reachable set. Entry points are highlighted; edges are colored by
// provenance and thickened by multiplicity. Output is sorted and stable.
func ReachabilityDOT(edges []disasm.CallEdgeRecord, reachable map[string]bool, entryPoints []string, title string, t Theme) string {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		entrySet[ep] = true
	}

	type edgeKey struct{ from, to, prov string }
	edgeCount := make(map[edgeKey]int)
	nodes := make(map[string]bool)
	for _, e := range edges {
		to := calleeOf(e)
		if to == "" || !reachable[e.FromFunc] {
			continue
		}
		edgeCount[edgeKey{e.FromFunc, to, ClassifyEdgeProv(e)}]++
		nodes[e.FromFunc] = true
		nodes[to] = true
	}
	for _, ep := range entryPoints {
		nodes[ep] = true
	}

	var b strings.Builder
	b.WriteString("digraph reachable {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.4;\n")
	b.WriteString("  ranksep=0.6;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeDirect)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, dotEscape(title))
	}
	b.WriteByte('\n')

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id := dotID(name)
		label := truncLabel(name, 50)
		switch {
		case entrySet[name]:
			fmt.Fprintf(&b, "  %s [label=%q, penwidth=1.5, color=%q];\n", id, label, t.EntryColor)
		case strings.HasPrefix(name, "sub_"):
			fmt.Fprintf(&b, "  %s [label=%q, fillcolor=%q];\n", id, label, t.StubFill)
		default:
			fmt.Fprintf(&b, "  %s [label=%q];\n", id, label)
		}
	}
	b.WriteByte('\n')

	keys := make([]edgeKey, 0, len(edgeCount))
	for k := range edgeCount {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].prov < keys[j].prov
	})
	for _, k := range keys {
		attrs := fmt.Sprintf("color=%q", edgeColor(k.prov, t))
		if count := edgeCount[k]; count > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(count)*0.1)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(k.from), dotID(k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
