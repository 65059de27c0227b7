package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/dumontcloud/dumont-qa/app/config"
)

func main() {
	// generate schema for the harness config
	schema := jsonschema.Reflect(&config.Config{})

	// set schema metadata
	schema.Title = "Dumont QA Configuration Schema"
	schema.Description = "Schema for the dumont-qa YAML configuration file"
	schema.Version = "1.0.0"

	// marshal to JSON with indentation
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal schema: %v", err)
	}

	// write to file
	outputPath := "schema.json"
	if len(os.Args) > 1 {
		outputPath = os.Args[1]
	}

	if err := os.WriteFile(outputPath, data, 0o600); err != nil {
		log.Fatalf("failed to write schema to %s: %v", outputPath, err)
	}

	fmt.Printf("schema written to %s\n", outputPath)
}
