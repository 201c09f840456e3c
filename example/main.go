package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/libshade/libshade/attack"
	"github.com/libshade/libshade/export"
	javafrontend "github.com/libshade/libshade/frontend/java"
	"github.com/libshade/libshade/report"
	"github.com/libshade/libshade/store"
)

const librarySource = `
package com.sample.codec;

public class Encoder {
    private int level;

    public Encoder(int level) {
        this.level = level;
    }

    public int encode(int value) {
        int shifted = value * this.level;
        return shifted;
    }
}
`

func main() {
	inspector := javafrontend.NewInspector(nil)
	codeModel, err := inspector.InspectSource([]byte(librarySource))
	if err != nil {
		fmt.Printf("Error parsing library source: %v\n", err)
		os.Exit(1)
	}

	outputDir := filepath.Join(os.TempDir(), "libshade-example")
	cfg := attack.DefaultConfig()
	cfg.Mode = attack.ModeBlackBoxPlus
	cfg.MaxIterations = 20
	cfg.OutputDir = outputDir

	engine, err := attack.New(cfg, codeModel,
		attack.WithReifier(javafrontend.NewReifier()),
		attack.WithLogger(attack.NewLogger(false)),
	)
	if err != nil {
		fmt.Printf("Error creating engine: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	result, err := engine.Run(ctx, []string{"com.sample.codec.Encoder"}, "", "sample-codec")
	if err != nil {
		fmt.Printf("Error running attack: %v\n", err)
		os.Exit(1)
	}

	report.WriteSummary(os.Stdout, result)
	report.WriteOperations(os.Stdout, result.Modifications)

	db, err := store.Open(filepath.Join(outputDir, "runs.db"))
	if err != nil {
		fmt.Printf("Error opening store: %v\n", err)
		os.Exit(1)
	}
	if err := db.SaveResult(cfg, result); err != nil {
		fmt.Printf("Error saving result: %v\n", err)
		os.Exit(1)
	}

	graphExporter := export.NewJSONExporter(filepath.Join(outputDir, "graph.json"))
	if err := graphExporter.Export(ctx, export.BuildIR(engine.CurrentGraph())); err != nil {
		fmt.Printf("Error exporting graph: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Artifacts written under: %s\n", outputDir)
}
