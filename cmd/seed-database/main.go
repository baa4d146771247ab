package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/toolbridge/toolbridge/pkg/database"
	"github.com/toolbridge/toolbridge/pkg/services"
	"gopkg.in/yaml.v3"
)

// SpecConfig defines how each spec should be imported
type SpecConfig struct {
	File         string `json:"file" yaml:"file"`
	Name         string `json:"name" yaml:"name"`
	EndpointPath string `json:"endpoint_path" yaml:"endpoint_path"`
	Token        string `json:"token,omitempty" yaml:"token,omitempty"`
	Active       bool   `json:"active" yaml:"active"`
}

// SeedConfig defines the seeding configuration
type SeedConfig struct {
	Specs []SpecConfig `json:"specs" yaml:"specs"`
}

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	if configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed-database <config.yaml|config.json>")
		os.Exit(1)
	}

	if err := database.InitializeDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	specService := services.NewSpecService(database.DB)
	seedFromConfig(specService, configFile)
}

func seedFromConfig(specService *services.SpecService, configFile string) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	var config SeedConfig
	ext := strings.ToLower(filepath.Ext(configFile))
	if ext == ".json" {
		err = json.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	fmt.Printf("Seeding database with %d specs from config...\n", len(config.Specs))

	imported := 0
	for _, specConfig := range config.Specs {
		if _, err := os.Stat(specConfig.File); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Spec file not found: %s\n", specConfig.File)
			continue
		}

		var token *string
		if specConfig.Token != "" {
			token = &specConfig.Token
		}

		if err := specService.ImportSpecFromFileWithToken(specConfig.File, specConfig.Name, specConfig.EndpointPath, token); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to import %s: %v\n", specConfig.File, err)
			continue
		}

		status := "active"
		if !specConfig.Active {
			deactivateByName(specService, specConfig.Name)
			status = "inactive"
		}

		fmt.Printf("✓ Imported %s as '%s' (%s) with endpoint '%s'\n",
			specConfig.File, specConfig.Name, status, specConfig.EndpointPath)
		imported++
	}

	fmt.Printf("\nSeeding completed: %d specs imported successfully\n", imported)

	if imported > 0 {
		fmt.Println("\nTo view imported specs, run:")
		fmt.Println("  ./bin/spec-manager list")
		fmt.Println("\nTo start the server with database specs:")
		fmt.Println("  ./bin/toolbridge")
	}
}

func deactivateByName(specService *services.SpecService, name string) {
	specs, err := specService.GetAllSpecs()
	if err != nil {
		return
	}
	for _, spec := range specs {
		if spec.Name == name {
			if err := specService.DeactivateSpec(spec.ID); err == nil {
				fmt.Printf("  → Deactivated spec '%s'\n", name)
			}
			return
		}
	}
}
