package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// printResult writes v to w as indented JSON or YAML. YAML output goes
// through the JSON encoding so field names and offer order match the API.
func printResult(w io.Writer, format string, v any) error {
	switch format {
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		b, err := json.Marshal(v)
		if err != nil {
			return eris.Wrap(err, "encode json")
		}
		var doc yaml.Node
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return eris.Wrap(err, "decode json as yaml")
		}
		blockStyle(&doc)

		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&doc); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		return eris.Errorf("unknown output format %q", format)
	}
}

// blockStyle drops the flow and quoting styles JSON input leaves on nodes.
// Strings that would read as another type stay quoted.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
