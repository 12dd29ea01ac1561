package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/skillpath/skillpath/internal/catalog"
)

func cmdCatalog(args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	search := fs.String("search", "", "filter the catalog by name")
	fs.Parse(args)

	subcategory := "all"
	if fs.NArg() > 0 {
		subcategory = fs.Arg(0)
	}

	sources := catalog.DefaultSources()
	if path := os.Getenv("SKILLPATH_CATALOG_SOURCES"); path != "" {
		var err error
		sources, err = catalog.LoadSources(path)
		if err != nil {
			return fmt.Errorf("load catalog sources: %w", err)
		}
	}

	baseURL := os.Getenv("SKILLPATH_CATALOG_URL")
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org"
	}

	client := catalog.NewClient(baseURL, sources, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	sections, err := client.FetchSections(ctx, subcategory)
	if err != nil {
		return fmt.Errorf("fetch catalog: %w", err)
	}

	if *search != "" {
		sections = catalog.Filter(sections, *search)
	}

	if len(sections) == 0 {
		fmt.Println("No catalog entries found.")
		return nil
	}

	for _, section := range sections {
		fmt.Println(section.Title)
		for _, item := range section.Items {
			printNode(item, 1)
		}
	}
	return nil
}

func printNode(node catalog.Node, depth int) {
	fmt.Printf("%s%s\n", strings.Repeat("  ", depth), node.Name)
	for _, child := range node.Children {
		printNode(child, depth+1)
	}
}
