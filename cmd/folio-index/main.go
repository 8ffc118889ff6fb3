package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/foliolabs/folio/pkg/content"
	"github.com/foliolabs/folio/pkg/index"
	"github.com/foliolabs/folio/pkg/logging"
)

// folio-index builds the on-disk bleve index from a content directory
// so the server can start with the "index" backend without a cold
// rebuild.
func main() {
	var (
		contentDir = flag.String("content", "content", "Content directory to index")
		indexPath  = flag.String("out", "folio.bleve", "Index output path")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := logging.New(&logging.Config{Level: logging.InfoLevel, Format: logging.TextFormat, Output: os.Stdout})
	if *verbose {
		logger.SetLevel(logging.DebugLevel)
	}

	store, err := content.NewStore(*contentDir, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "content store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "loading content: %v\n", err)
		os.Exit(1)
	}

	idx, err := index.Open(index.Config{Path: *indexPath}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening index: %v\n", err)
		os.Exit(1)
	}
	defer idx.Close()

	if err := idx.Rebuild(store.Snapshot()); err != nil {
		fmt.Fprintf(os.Stderr, "indexing: %v\n", err)
		os.Exit(1)
	}

	count, err := idx.DocCount()
	if err != nil {
		fmt.Fprintf(os.Stderr, "doc count: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("indexed %d items from %s into %s\n", count, *contentDir, *indexPath)
}
