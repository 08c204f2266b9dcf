package crawl

import (
	"io"
	"sync"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
	"github.com/pkg/errors"
)

// LinkGraph records which page led to which link during a run.
type LinkGraph struct {
	mutex sync.Mutex
	g     graph.Graph[string, string]
}

func NewLinkGraph() *LinkGraph {
	return &LinkGraph{g: graph.New(graph.StringHash, graph.Directed())}
}

// AddPage marks page as served and adds an edge to each of its links.
func (lg *LinkGraph) AddPage(page string, links []string) error {
	lg.mutex.Lock()
	defer lg.mutex.Unlock()

	if err := lg.addVertex(page, "filled"); err != nil {
		return err
	}
	for _, link := range links {
		if link == page {
			continue
		}
		if err := lg.addVertex(link, ""); err != nil {
			return err
		}
		err := lg.g.AddEdge(page, link, graph.EdgeAttribute("color", "black"))
		if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return errors.Wrapf(err, "adding edge %s -> %s", page, link)
		}
	}
	return nil
}

func (lg *LinkGraph) addVertex(url, style string) error {
	options := []func(*graph.VertexProperties){graph.VertexAttribute("shape", "box")}
	if style != "" {
		options = append(options, graph.VertexAttribute("style", style), graph.VertexAttribute("fillcolor", "lightgreen"))
	}
	err := lg.g.AddVertex(url, options...)
	if err == nil {
		return nil
	}
	if !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return errors.Wrapf(err, "adding vertex %s", url)
	}
	if style == "" {
		return nil
	}
	// The page was discovered before it was served, repaint it
	_, props, err := lg.g.VertexWithProperties(url)
	if err != nil {
		return errors.Wrapf(err, "looking up vertex %s", url)
	}
	props.Attributes["style"] = style
	props.Attributes["fillcolor"] = "lightgreen"
	return nil
}

// Counts returns the number of pages and links in the graph.
func (lg *LinkGraph) Counts() (vertices, edges int) {
	lg.mutex.Lock()
	defer lg.mutex.Unlock()
	adjacency, err := lg.g.AdjacencyMap()
	if err != nil {
		return 0, 0
	}
	for _, targets := range adjacency {
		edges += len(targets)
	}
	return len(adjacency), edges
}

// Successors returns the links recorded for page.
func (lg *LinkGraph) Successors(page string) []string {
	lg.mutex.Lock()
	defer lg.mutex.Unlock()
	adjacency, err := lg.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(adjacency[page]))
	for target := range adjacency[page] {
		out = append(out, target)
	}
	return out
}

// WriteDOT writes the graph in Graphviz DOT format.
func (lg *LinkGraph) WriteDOT(w io.Writer) error {
	lg.mutex.Lock()
	defer lg.mutex.Unlock()
	return draw.DOT(lg.g, w)
}
