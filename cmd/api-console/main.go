// Command api-console is an interactive shell for exploring a loaded OpenAPI
// spec and issuing calls against its upstream without starting the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/toolbridge/toolbridge/pkg/apicall"
	"github.com/toolbridge/toolbridge/pkg/auth"
	"github.com/toolbridge/toolbridge/pkg/loader"
	"github.com/toolbridge/toolbridge/pkg/openapi"
)

type console struct {
	executor *apicall.Executor
	loader   *loader.SpecLoader

	endpoint string
	baseURL  string
	ops      []openapi.Operation

	authType   auth.Scheme
	authConfig auth.Config
}

func main() {
	c := &console{
		executor: apicall.NewExecutor(nil, auth.NewResolver(nil, nil)),
		loader:   loader.NewSpecLoader(nil, auth.NewStateManager()),
	}

	if len(os.Args) > 1 {
		if err := c.load(os.Args[1]); err != nil {
			log.Fatalf("Failed to load spec: %v", err)
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "api> ",
		HistoryFile:     "/tmp/api-console.history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		log.Fatalf("Failed to initialize console: %v", err)
	}
	defer rl.Close()

	fmt.Println("Type 'help' for available commands.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return
		}

		if err := c.dispatch(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func (c *console) dispatch(line string) error {
	parts := strings.SplitN(line, " ", 3)
	cmd := parts[0]

	switch cmd {
	case "help":
		printHelp()
		return nil
	case "load":
		if len(parts) < 2 {
			return fmt.Errorf("usage: load <file-or-url>")
		}
		return c.load(parts[1])
	case "ops":
		return c.listOps()
	case "template":
		if len(parts) < 2 {
			return fmt.Errorf("usage: template <operationId>")
		}
		return c.template(parts[1])
	case "auth":
		return c.setAuth(parts[1:])
	case "call":
		if len(parts) < 2 {
			return fmt.Errorf("usage: call <operationId> [json-overrides]")
		}
		overrides := ""
		if len(parts) == 3 {
			overrides = parts[2]
		}
		return c.call(parts[1], overrides)
	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  load <file-or-url>            Load an OpenAPI spec")
	fmt.Println("  ops                           List operations of the loaded spec")
	fmt.Println("  template <operationId>        Show the request template for an operation")
	fmt.Println("  auth none                     Clear authentication")
	fmt.Println("  auth bearer <token>           Use a bearer token")
	fmt.Println("  auth basic <user> <password>  Use basic authentication")
	fmt.Println("  call <operationId> [json]     Call an operation, optionally merging a")
	fmt.Println("                                JSON object of descriptor overrides")
	fmt.Println("  exit                          Leave the console")
}

func (c *console) load(source string) error {
	specs, err := c.loader.LoadFromFiles(context.Background(), []string{source})
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		return fmt.Errorf("could not load a spec from %s", source)
	}
	spec := specs[len(specs)-1]

	c.endpoint = spec.Endpoint
	c.ops = spec.Operations
	c.baseURL = ""
	if spec.Doc != nil && len(spec.Doc.Servers) > 0 {
		c.baseURL = spec.Doc.Servers[0].URL
	}

	fmt.Printf("Loaded %q: %d operations, base URL %q\n", spec.Endpoint, len(c.ops), c.baseURL)
	return nil
}

func (c *console) listOps() error {
	if len(c.ops) == 0 {
		return fmt.Errorf("no spec loaded, use 'load' first")
	}
	for _, op := range c.ops {
		id := op.OperationID
		if id == "" {
			id = "-"
		}
		fmt.Printf("%-40s %-7s %s\n", id, op.Method, op.Path)
	}
	return nil
}

func (c *console) template(operationID string) error {
	op, err := openapi.FindOperation(c.ops, operationID)
	if err != nil {
		return err
	}
	return printJSON(openapi.BuildRequestTemplate(c.baseURL, op))
}

func (c *console) setAuth(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: auth none|bearer <token>|basic <user> <password>")
	}

	fields := strings.Fields(strings.Join(args, " "))
	switch fields[0] {
	case "none":
		c.authType = auth.SchemeNone
		c.authConfig = auth.Config{}
	case "bearer":
		if len(fields) < 2 {
			return fmt.Errorf("usage: auth bearer <token>")
		}
		c.authType = auth.SchemeBearer
		c.authConfig = auth.Config{Token: fields[1]}
	case "basic":
		if len(fields) < 3 {
			return fmt.Errorf("usage: auth basic <user> <password>")
		}
		c.authType = auth.SchemeBasic
		c.authConfig = auth.Config{Username: fields[1], Password: fields[2]}
	default:
		return fmt.Errorf("unknown auth scheme %q", fields[0])
	}

	fmt.Printf("Authentication set to %q\n", c.authType)
	return nil
}

func (c *console) call(operationID, overrides string) error {
	op, err := openapi.FindOperation(c.ops, operationID)
	if err != nil {
		return err
	}

	raw := map[string]any{
		"endpoint": c.baseURL,
		"method":   op.Method,
		"path":     op.Path,
	}
	if overrides != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(overrides), &extra); err != nil {
			return fmt.Errorf("invalid overrides JSON: %w", err)
		}
		for k, v := range extra {
			raw[k] = v
		}
	}

	d, err := apicall.ParseDescriptor(raw)
	if err != nil {
		return err
	}
	if d.AuthType == "" || d.AuthType == auth.SchemeNone {
		d.AuthType = c.authType
		d.AuthConfig = c.authConfig
	}

	return printJSON(c.executor.Execute(context.Background(), d))
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
