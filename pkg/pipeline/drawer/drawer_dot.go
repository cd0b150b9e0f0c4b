// Package drawer renders a pipeline as a Graphviz DOT graph.
package drawer

import (
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/go-mlprep/internal/store"
	"github.com/askiada/go-mlprep/pkg/pipeline/measure"
)

// DOTDrawer writes the pipeline graph in the DOT language. Links are coloured from blue to red as
// their average transport time grows.
type DOTDrawer struct {
	graph graph.Graph[string, string]
	store store.CustomStore[string, string]
	wrt   io.Writer
}

// NewDOTDrawer returns a drawer writing to wrt when Draw is called.
func NewDOTDrawer(wrt io.Writer) *DOTDrawer {
	s := store.NewMemoryStore[string, string]()

	return &DOTDrawer{
		graph: graph.NewWithStore(graph.StringHash, s, graph.Directed()),
		store: s,
		wrt:   wrt,
	}
}

// AddStep adds a step to the pipeline graph.
func (d *DOTDrawer) AddStep(name string) error {
	err := d.graph.AddVertex(name)
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}

	return nil
}

// AddLink adds a link between parent and children steps.
func (d *DOTDrawer) AddLink(parentName, childrenName string) error {
	err := d.graph.AddEdge(parentName, childrenName)
	if err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childrenName)
	}

	return nil
}

// Draw writes the pipeline graph.
func (d *DOTDrawer) Draw() error {
	err := dot(d.graph, d.wrt)
	if err != nil {
		return errors.Wrap(err, "unable to write dot graph")
	}

	return nil
}

// SetTotalTime sets the total time for the step.
func (d *DOTDrawer) SetTotalTime(stepName string, startTime time.Time) error {
	err := d.store.UpdateVertex(stepName, graph.VertexAttribute("xlabel", round(time.Since(startTime)).String()))
	if err != nil {
		return errors.Wrapf(err, "unable to label vertex %s", stepName)
	}

	return nil
}

const maxRGB = 240

// AddMeasure adds measure to drawer.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	colours, err := transportColours(msr)
	if err != nil {
		return err
	}

	return d.updateMetrics(msr, colours)
}

func transportColours(msr measure.Measure) (map[time.Duration]string, error) {
	allChanElapsed := make(map[time.Duration]string)

	for _, step := range msr.AllMetrics() {
		for _, info := range step.AVGTransportDuration() {
			if info.Elapsed > 0 {
				allChanElapsed[info.Elapsed] = ""
			}
		}
	}

	if len(allChanElapsed) == 0 {
		return allChanElapsed, nil
	}

	sorted := make([]time.Duration, 0, len(allChanElapsed))
	for elapsed := range allChanElapsed {
		sorted = append(sorted, elapsed)
	}

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	minValue, maxValue := sorted[0], sorted[len(sorted)-1]

	for _, curr := range sorted {
		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(curr-minValue) / float64(maxValue-minValue)
		}

		red := maxRGB * fraction

		colour, err := colors.RGB(uint8(red), 0, uint8(maxRGB-red)) //nolint
		if err != nil {
			return nil, errors.Wrap(err, "unable to get colour")
		}

		allChanElapsed[curr] = colour.ToHEX().String()
	}

	return allChanElapsed, nil
}

func (d *DOTDrawer) updateMetrics(msr measure.Measure, allChanElapsed map[time.Duration]string) error {
	for name, step := range msr.AllMetrics() {
		var xlabel string

		if stepAvg := step.AVGDuration(); stepAvg != 0 {
			xlabel = stepAvg.String()
		}

		if total := step.GetTotalDuration(); total > 0 {
			if xlabel != "" {
				xlabel += ", "
			}

			xlabel += "end: " + round(total).String()
		}

		if xlabel != "" {
			err := d.store.UpdateVertex(name, graph.VertexAttribute("xlabel", xlabel))
			if err != nil {
				return errors.Wrapf(err, "unable to label vertex %s", name)
			}
		}

		for inputStep, info := range step.AVGTransportDuration() {
			if info.Elapsed == 0 {
				continue
			}

			err := d.graph.UpdateEdge(inputStep, name,
				graph.EdgeAttribute("label", info.Elapsed.String()),
				graph.EdgeAttribute("fontcolor", "blue"),
				graph.EdgeAttribute("color", allChanElapsed[info.Elapsed]),
			)
			if err != nil {
				return errors.Wrapf(err, "unable to update edge from %s to %s", inputStep, name)
			}
		}
	}

	return nil
}

func round(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(time.Millisecond)
	}

	return d.Round(time.Microsecond)
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
{{range $k, $v := .Attributes}}	{{$k}}="{{$v}}";
{{end}}{{range $s := .Statements}}	"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}}{{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}}weight={{.SourceWeight}} ]{{end}};
{{end}}}
`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot(g graph.Graph[string, string], wrt io.Writer, options ...func(*description)) error {
	desc, err := generateDOT(g, options...)
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

// GraphAttribute sets an attribute of the whole graph.
func GraphAttribute(key, value string) func(*description) {
	return func(d *description) {
		d.Attributes[key] = value
	}
}

// generateDOT lists vertices and their edges in name order so the output is stable.
func generateDOT(gra graph.Graph[string, string], options ...func(*description)) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   make(map[string]string),
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	for _, option := range options {
		option(&desc)
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	for _, vertex := range sortedKeys(adjacencyMap) {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		htmlAttributes := make(map[string]string)

		if xlabel, ok := sourceProperties.Attributes["xlabel"]; ok {
			htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, xlabel)

			delete(sourceProperties.Attributes, "xlabel")
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: sourceProperties.Attributes,
			HTMLAttributes:   htmlAttributes,
		})

		adjacencies := adjacencyMap[vertex]
		for _, adjacency := range sortedKeys(adjacencies) {
			edge := adjacencies[adjacency]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         adjacency,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
