package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/toolbridge/toolbridge/pkg/database"
	"github.com/toolbridge/toolbridge/pkg/models"
	"github.com/toolbridge/toolbridge/pkg/services"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	command := os.Args[1]

	if err := database.InitializeDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	specService := services.NewSpecService(database.DB)

	switch command {
	case "list":
		handleList(specService)
	case "import":
		handleImport(specService)
	case "activate":
		handleActivate(specService)
	case "deactivate":
		handleDeactivate(specService)
	case "delete":
		handleDelete(specService)
	case "active":
		handleActiveList(specService)
	case "set-token":
		handleSetToken(specService)
	case "verify":
		handleVerify(specService)
	case "help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("OpenAPI Spec Manager")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                           List all specs in the database")
	fmt.Println("  active                         List only active specs")
	fmt.Println("  import <file> <name> <endpoint> Import a spec file into the database")
	fmt.Println("  activate <id>                  Activate a spec by ID")
	fmt.Println("  deactivate <id>                Deactivate a spec by ID")
	fmt.Println("  delete <id>                    Delete a spec by ID")
	fmt.Println("  set-token <id> <token>         Set API key token for a spec")
	fmt.Println("  verify <name>                  Parse and index a stored spec")
	fmt.Println("  help                           Show this help message")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  spec-manager import weather.yaml weather /weather")
	fmt.Println("  spec-manager list")
	fmt.Println("  spec-manager activate 1")
	fmt.Println("  spec-manager deactivate 1")
	fmt.Println("  spec-manager set-token 1 \"your_api_token_here\"")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_URL                   PostgreSQL connection string")
}

func printSpecTable(specs []*models.APISpec, withActive bool) {
	if withActive {
		fmt.Printf("%-4s %-20s %-30s %-10s %-8s %-10s %-12s %s\n", "ID", "Name", "Title", "Version", "Active", "Format", "Has Token", "Endpoint")
		fmt.Println(strings.Repeat("-", 115))
	} else {
		fmt.Printf("%-4s %-20s %-30s %-10s %-10s %-12s %s\n", "ID", "Name", "Title", "Version", "Format", "Has Token", "Endpoint")
		fmt.Println(strings.Repeat("-", 105))
	}

	for _, spec := range specs {
		title := ""
		if spec.Title != nil {
			title = truncate(*spec.Title, 28)
		}
		version := ""
		if spec.Version != nil {
			version = truncate(*spec.Version, 8)
		}
		format := ""
		if spec.FileFormat != nil {
			format = *spec.FileFormat
		}
		name := truncate(spec.Name, 18)

		hasToken := "No"
		if spec.APIKeyToken != nil && *spec.APIKeyToken != "" {
			hasToken = "Yes"
		}

		if withActive {
			active := "false"
			if spec.IsActive != nil && *spec.IsActive {
				active = "true"
			}
			fmt.Printf("%-4d %-20s %-30s %-10s %-8s %-10s %-12s %s\n",
				spec.ID, name, title, version, active, format, hasToken, spec.EndpointPath)
		} else {
			fmt.Printf("%-4d %-20s %-30s %-10s %-10s %-12s %s\n",
				spec.ID, name, title, version, format, hasToken, spec.EndpointPath)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

func handleList(specService *services.SpecService) {
	specs, err := specService.GetAllSpecs()
	if err != nil {
		log.Fatalf("Failed to get specs: %v", err)
	}

	if len(specs) == 0 {
		fmt.Println("No specs found in the database.")
		return
	}
	printSpecTable(specs, true)
}

func handleActiveList(specService *services.SpecService) {
	specs, err := specService.GetActiveSpecs()
	if err != nil {
		log.Fatalf("Failed to get active specs: %v", err)
	}

	if len(specs) == 0 {
		fmt.Println("No active specs found in the database.")
		return
	}
	printSpecTable(specs, false)
}

func handleImport(specService *services.SpecService) {
	if len(os.Args) < 5 {
		fmt.Fprintf(os.Stderr, "Usage: spec-manager import <file-path> <name> <endpoint-path>\n")
		os.Exit(1)
	}

	filePath := os.Args[2]
	name := os.Args[3]
	endpointPath := os.Args[4]

	if err := specService.ImportSpecFromFile(filePath, name, endpointPath); err != nil {
		log.Fatalf("Failed to import spec: %v", err)
	}

	fmt.Printf("Successfully imported spec '%s' from '%s' with endpoint '%s'\n", name, filePath, endpointPath)
}

func handleActivate(specService *services.SpecService) {
	id := idArg()
	if err := specService.ActivateSpec(id); err != nil {
		log.Fatalf("Failed to activate spec: %v", err)
	}
	fmt.Printf("Successfully activated spec with ID %d\n", id)
}

func handleDeactivate(specService *services.SpecService) {
	id := idArg()
	if err := specService.DeactivateSpec(id); err != nil {
		log.Fatalf("Failed to deactivate spec: %v", err)
	}
	fmt.Printf("Successfully deactivated spec with ID %d\n", id)
}

func handleDelete(specService *services.SpecService) {
	id := idArg()
	if err := specService.DeleteSpec(id); err != nil {
		log.Fatalf("Failed to delete spec: %v", err)
	}
	fmt.Printf("Successfully deleted spec with ID %d\n", id)
}

func handleSetToken(specService *services.SpecService) {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: spec-manager set-token <id> <token>\n")
		fmt.Fprintf(os.Stderr, "       spec-manager set-token <id> \"\"  (to clear token)\n")
		os.Exit(1)
	}

	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("Invalid ID: %v", err)
	}

	token := os.Args[3]
	var tokenPtr *string
	if token != "" {
		tokenPtr = &token
	}

	if err := specService.UpdateAPIKeyToken(id, tokenPtr); err != nil {
		log.Fatalf("Failed to update API key token: %v", err)
	}

	if tokenPtr == nil {
		fmt.Printf("Successfully cleared API key token for spec with ID %d\n", id)
	} else {
		fmt.Printf("Successfully set API key token for spec with ID %d\n", id)
	}
}

func handleVerify(specService *services.SpecService) {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: spec-manager verify <name>\n")
		os.Exit(1)
	}
	name := os.Args[2]

	ops, doc, err := specService.LoadSpecByName(name)
	if err != nil {
		log.Fatalf("Failed to verify spec: %v", err)
	}

	title := name
	if doc.Info != nil && doc.Info.Title != "" {
		title = doc.Info.Title
	}

	fmt.Printf("Spec '%s' (%s) indexes into %d operations:\n", name, title, len(ops))
	for _, op := range ops {
		id := op.OperationID
		if id == "" {
			id = "-"
		}
		fmt.Printf("  %-7s %-40s %s\n", op.Method, id, op.Path)
	}
}

func idArg() int {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: spec-manager %s <id>\n", os.Args[1])
		os.Exit(1)
	}
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		log.Fatalf("Invalid ID: %v", err)
	}
	return id
}
