//go:build ignore
// +build ignore

// generate_testdata.go writes graph files for benchmarking the renderer.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//   testdata/benchmark/small.json   (~100 nodes, case-shaped)
//   testdata/benchmark/medium.json  (~1000 nodes, case-shaped)
//   testdata/benchmark/large.json   (~5000 nodes, case-shaped)
//   testdata/benchmark/dense.json   (2000 nodes, random)
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/casegraph/pkg/loader"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/testutil"
)

type datasetSpec struct {
	name  string
	build func(g *testutil.Generator) model.Graph
}

var datasets = []datasetSpec{
	{"small", func(g *testutil.Generator) model.Graph { return g.Investigation(14, 6) }},
	{"medium", func(g *testutil.Generator) model.Graph { return g.Investigation(140, 6) }},
	{"large", func(g *testutil.Generator) model.Graph { return g.Investigation(700, 6) }},
	{"dense", func(g *testutil.Generator) model.Graph { return g.ToGraph(g.Random(2000, 0.002)) }},
}

func main() {
	outputDir := filepath.Join("testdata", "benchmark")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for i, ds := range datasets {
		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(i + 1)
		cfg.Captions = true
		g := ds.build(testutil.New(cfg))

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := writeGraph(outputPath, g); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d nodes, %d edges)\n", outputPath, len(g.Nodes), len(g.Edges))
	}

	fmt.Println("\nDone! Test graphs created in", outputDir)
}

func writeGraph(path string, g model.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := loader.WriteJSON(w, g); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
