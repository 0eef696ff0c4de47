package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/BaSui01/lmgateway/workflow"
	"github.com/BaSui01/lmgateway/workflow/nodes/lmgateway"
)

// newRegistry registers every node type this binary ships.
func newRegistry(limiter *rate.Limiter) *workflow.Registry {
	registry := workflow.NewRegistry()
	var opts []lmgateway.Option
	if limiter != nil {
		opts = append(opts, lmgateway.WithLimiter(limiter))
	}
	registry.MustRegister(lmgateway.New(opts...))
	return registry
}

func runDescribe(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	format := fs.String("format", "json", "Output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}

	node, err := newRegistry(nil).Get(lmgateway.NodeType)
	if err != nil {
		return err
	}
	return writeDescription(w, node.Description(), *format)
}

func writeDescription(w io.Writer, desc *workflow.NodeDescription, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(desc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (json, yaml)", format)
	}
}
