// Package ordering derives the total order of layers from the pairwise
// precedence constraints declared by aspect authors.
//
// Orders are "outermost first": the first layer's code runs first when the
// final member is invoked, and it was applied last.
package ordering

import (
	"fmt"
	"sort"
	"strings"

	"github.com/funvibe/weaver/internal/transform"
)

// Constraint says that Before runs before (is outer to) After. Either end is
// an aspect ("Logging") or one of its layers ("Logging:build").
type Constraint struct {
	Before string
	After  string
}

// Conflict reports layers whose relative order is cyclic.
type Conflict struct {
	Nodes []string
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("cyclic precedence between %s", strings.Join(c.Nodes, ", "))
}

type node struct {
	name     string
	aspect   string
	layer    string
	position int
	minOrder int
	out      map[string]bool

	// tarjan state
	index   int
	lowlink int
	onStack bool
	visited bool
	scc     int
}

// Orderer holds the global precedence graph condensed into a ranked DAG. It
// is immutable after Build and safe for concurrent use.
type Orderer struct {
	nodes   map[string]*node
	sccRank map[int]int
	cyclic  map[int][]string // scc -> member nodes, only for cycles
	rank    map[transform.LayerID]int
}

// Build constructs the orderer from every layer of the weaving pass.
func Build(layers []transform.Layer, constraints []Constraint) *Orderer {
	o := &Orderer{
		nodes:   make(map[string]*node),
		sccRank: make(map[int]int),
		cyclic:  make(map[int][]string),
		rank:    make(map[transform.LayerID]int),
	}
	for _, l := range layers {
		n, ok := o.nodes[l.Node()]
		if !ok {
			n = &node{name: l.Node(), aspect: l.Aspect, layer: l.Name, position: l.Position, minOrder: l.Order, out: make(map[string]bool)}
			o.nodes[n.name] = n
		}
		if l.Order < n.minOrder {
			n.minOrder = l.Order
		}
	}
	o.addImplicitEdges()
	for _, c := range constraints {
		for _, b := range o.match(c.Before) {
			for _, a := range o.match(c.After) {
				if b != a {
					b.out[a.name] = true
				}
			}
		}
	}
	o.condense()
	o.rankLayers(layers)
	return o
}

// Layers of one aspect: a later-declared layer sees the output of earlier
// ones, so it is outer.
func (o *Orderer) addImplicitEdges() {
	byAspect := make(map[string][]*node)
	for _, n := range o.nodes {
		byAspect[n.aspect] = append(byAspect[n.aspect], n)
	}
	for _, group := range byAspect {
		sort.Slice(group, func(i, j int) bool {
			if group[i].position != group[j].position {
				return group[i].position < group[j].position
			}
			return group[i].name < group[j].name
		})
		for i := 1; i < len(group); i++ {
			group[i].out[group[i-1].name] = true
		}
	}
}

func (o *Orderer) match(ref string) []*node {
	if n, ok := o.nodes[ref]; ok && strings.Contains(ref, ":") {
		return []*node{n}
	}
	var out []*node
	for _, n := range o.nodes {
		if n.aspect == ref {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func (o *Orderer) sortedNames() []string {
	names := make([]string, 0, len(o.nodes))
	for name := range o.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// condense runs Tarjan's algorithm, then ranks the SCC DAG with Kahn's
// algorithm, preferring the SCC with the earliest declaration-site order.
func (o *Orderer) condense() {
	index := 0
	var stack []*node
	scc := 0
	members := make(map[int][]*node)

	var strongConnect func(v *node)
	strongConnect = func(v *node) {
		v.index, v.lowlink, v.visited = index, index, true
		index++
		stack = append(stack, v)
		v.onStack = true
		succ := make([]string, 0, len(v.out))
		for w := range v.out {
			succ = append(succ, w)
		}
		sort.Strings(succ)
		for _, name := range succ {
			w := o.nodes[name]
			if !w.visited {
				strongConnect(w)
				if w.lowlink < v.lowlink {
					v.lowlink = w.lowlink
				}
			} else if w.onStack && w.index < v.lowlink {
				v.lowlink = w.index
			}
		}
		if v.lowlink == v.index {
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				w.onStack = false
				w.scc = scc
				members[scc] = append(members[scc], w)
				if w == v {
					break
				}
			}
			scc++
		}
	}
	for _, name := range o.sortedNames() {
		if n := o.nodes[name]; !n.visited {
			strongConnect(n)
		}
	}

	for id, ms := range members {
		if len(ms) > 1 {
			names := make([]string, len(ms))
			for i, m := range ms {
				names[i] = m.name
			}
			sort.Strings(names)
			o.cyclic[id] = names
		}
	}

	indegree := make(map[int]int)
	edges := make(map[int]map[int]bool)
	for id := range members {
		edges[id] = make(map[int]bool)
		indegree[id] += 0
	}
	for _, n := range o.nodes {
		for w := range n.out {
			to := o.nodes[w].scc
			if to != n.scc && !edges[n.scc][to] {
				edges[n.scc][to] = true
				indegree[to]++
			}
		}
	}
	key := func(id int) (int, string) {
		minOrder, minName := 0, ""
		for i, m := range members[id] {
			if i == 0 || m.minOrder < minOrder {
				minOrder = m.minOrder
			}
			if i == 0 || m.name < minName {
				minName = m.name
			}
		}
		return minOrder, minName
	}
	var ready []int
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	rank := 0
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			oi, ni := key(ready[i])
			oj, nj := key(ready[j])
			if oi != oj {
				return oi < oj
			}
			return ni < nj
		})
		id := ready[0]
		ready = ready[1:]
		o.sccRank[id] = rank
		rank++
		for to := range edges[id] {
			indegree[to]--
			if indegree[to] == 0 {
				ready = append(ready, to)
			}
		}
	}
}

func (o *Orderer) less(a, b transform.Layer) bool {
	ra, rb := o.nodeRank(a), o.nodeRank(b)
	if ra != rb {
		return ra < rb
	}
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	if a.Node() != b.Node() {
		return a.Node() < b.Node()
	}
	return a.Position < b.Position
}

func (o *Orderer) nodeRank(l transform.Layer) int {
	n, ok := o.nodes[l.Node()]
	if !ok {
		return len(o.sccRank) // unknown layers sort innermost
	}
	return o.sccRank[n.scc]
}

func (o *Orderer) rankLayers(layers []transform.Layer) {
	all := append([]transform.Layer(nil), layers...)
	sort.SliceStable(all, func(i, j int) bool { return o.less(all[i], all[j]) })
	for i, l := range all {
		if _, seen := o.rank[l.ID()]; !seen {
			o.rank[l.ID()] = i
		}
	}
}

// Rank returns the global position of a layer, 0 being outermost. Layers
// unknown to the orderer rank after all known ones.
func (o *Orderer) Rank(id transform.LayerID) int {
	if r, ok := o.rank[id]; ok {
		return r
	}
	return len(o.rank)
}

// Order sorts the layers touching one declaration outermost first. It fails
// when two of them belong to the same precedence cycle.
func (o *Orderer) Order(layers []transform.Layer) ([]transform.Layer, error) {
	bySCC := make(map[int]map[string]bool)
	for _, l := range layers {
		n, ok := o.nodes[l.Node()]
		if !ok {
			continue
		}
		if _, cyclic := o.cyclic[n.scc]; !cyclic {
			continue
		}
		if bySCC[n.scc] == nil {
			bySCC[n.scc] = make(map[string]bool)
		}
		bySCC[n.scc][n.name] = true
	}
	ids := make([]int, 0, len(bySCC))
	for id := range bySCC {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if len(bySCC[id]) > 1 {
			return nil, &Conflict{Nodes: o.cyclic[id]}
		}
	}
	out := append([]transform.Layer(nil), layers...)
	sort.SliceStable(out, func(i, j int) bool { return o.less(out[i], out[j]) })
	return out, nil
}

// Cycles returns every precedence cycle in the graph, each sorted by name.
func (o *Orderer) Cycles() [][]string {
	var out [][]string
	for _, names := range o.cyclic {
		out = append(out, names)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
