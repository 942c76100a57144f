package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/halcyonsoft/halcyon/internal/scaffold"
)

func main() {
	var (
		schemaPath     = flag.String("schema", "", "path to the entity schema YAML file")
		serverRoot     = flag.String("server", "internal/generated", "output root for generated server code")
		clientRoot     = flag.String("client", "web/src/app", "output root for generated client code")
		overwrite      = flag.Bool("overwrite", false, "rewrite existing files whose content differs")
		skipComponents = flag.Bool("skip-components", false, "skip generating client page components")
	)
	flag.Parse()

	if *schemaPath == "" {
		fmt.Fprintln(os.Stderr, "scaffold: -schema is required")
		flag.Usage()
		os.Exit(2)
	}

	schema, err := scaffold.LoadSchema(*schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scaffold: %v\n", err)
		os.Exit(1)
	}

	entity, err := scaffold.BuildEntity(schema)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scaffold: %v\n", err)
		os.Exit(1)
	}
	for _, warning := range entity.Warnings {
		fmt.Fprintf(os.Stderr, "scaffold: warning: %s\n", warning)
	}

	summary, err := scaffold.Generate(entity, scaffold.Options{
		ServerRoot:     *serverRoot,
		ClientRoot:     *clientRoot,
		Overwrite:      *overwrite,
		SkipComponents: *skipComponents,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scaffold: %v\n", err)
		os.Exit(1)
	}

	for _, path := range summary.New {
		fmt.Printf("new       %s\n", path)
	}
	for _, path := range summary.Changed {
		fmt.Printf("changed   %s\n", path)
	}
	for _, path := range summary.Unchanged {
		fmt.Printf("unchanged %s\n", path)
	}
	fmt.Printf("%s: %d new, %d changed, %d unchanged\n",
		entity.Name, len(summary.New), len(summary.Changed), len(summary.Unchanged))
}
