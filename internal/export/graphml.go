// Package export writes the format graph as GraphML for operator
// inspection and ships it to file or S3 destinations on a schedule.
// Exports carry formats and registration IDs only, never registration
// payloads.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/convgraph/internal/graph"
)

const graphMLNamespace = "http://graphml.graphdrawing.org/xmlns"

// GraphML attribute keys.
const (
	KeyLabel         = "label"
	KeyConverters    = "converters"
	KeyRegistrations = "registrations"
)

type graphMLDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphMLKey `xml:"key"`
	Graph   graphMLGraph `xml:"graph"`
}

type graphMLKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphMLGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphMLNode `xml:"node"`
	Edges       []graphMLEdge `xml:"edge"`
}

type graphMLNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphMLData `xml:"data"`
}

type graphMLEdge struct {
	ID     string        `xml:"id,attr"`
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphMLData `xml:"data"`
}

type graphMLData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteGraphML renders snap as a directed GraphML document. Vertices are
// labelled with their format; edges carry the number of registrations and
// their IDs.
func WriteGraphML(w io.Writer, snap graph.Snapshot) error {
	doc := graphMLDoc{
		Xmlns: graphMLNamespace,
		Keys: []graphMLKey{
			{ID: KeyLabel, For: "node", Name: KeyLabel, Type: "string"},
			{ID: KeyConverters, For: "edge", Name: KeyConverters, Type: "int"},
			{ID: KeyRegistrations, For: "edge", Name: KeyRegistrations, Type: "string"},
		},
		Graph: graphMLGraph{ID: "convgraph", EdgeDefault: "directed"},
	}

	ids := make(map[string]string, len(snap.Vertices))
	for i, v := range snap.Vertices {
		id := "n" + strconv.Itoa(i)
		ids[v] = id
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphMLNode{
			ID:   id,
			Data: []graphMLData{{Key: KeyLabel, Value: v}},
		})
	}
	for i, e := range snap.Edges {
		src, ok := ids[e.Source]
		if !ok {
			return fmt.Errorf("export: edge %d references unknown vertex %q", i, e.Source)
		}
		dst, ok := ids[e.Target]
		if !ok {
			return fmt.Errorf("export: edge %d references unknown vertex %q", i, e.Target)
		}
		doc.Graph.Edges = append(doc.Graph.Edges, graphMLEdge{
			ID:     "e" + strconv.Itoa(i),
			Source: src,
			Target: dst,
			Data: []graphMLData{
				{Key: KeyConverters, Value: strconv.Itoa(len(e.Registrations))},
				{Key: KeyRegistrations, Value: strings.Join(e.Registrations, " ")},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("export: writing header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encoding graphml: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("export: writing trailer: %w", err)
	}
	return nil
}
