package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mnohosten/laura-db/pkg/admin"
	"github.com/mnohosten/laura-db/pkg/hashindex"
	"github.com/mnohosten/laura-db/pkg/storage"
)

func main() {
	host := flag.String("host", "localhost", "Admin server host address")
	port := flag.Int("port", 8080, "Admin server port")
	dataDir := flag.String("data-dir", "./data", "Data directory for the paged heap file")
	dbFile := flag.String("db-file", "heap.db", "Name of the heap file within data-dir")
	bufferSize := flag.Int("buffer-size", 1000, "Buffer pool size in pages (1 page = 4KB)")
	numBuckets := flag.Int("buckets", 16, "Initial number of hash index buckets")
	corsOrigin := flag.String("cors-origin", "*", "CORS allowed origin")
	enableGraphQL := flag.Bool("graphql", true, "Enable GraphQL API endpoint (/graphql) and GraphiQL playground (/graphiql)")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create data directory: %v\n", err)
		os.Exit(1)
	}

	dm, err := storage.NewFileDiskManager(filepath.Join(*dataDir, *dbFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open heap file: %v\n", err)
		os.Exit(1)
	}
	defer dm.Close()

	bpm := storage.NewBufferPoolManager(*bufferSize, dm)

	ht, err := hashindex.NewLinearProbeHashTable[int64, hashindex.RID](
		bpm, *numBuckets,
		hashindex.Int64Codec{}, hashindex.RIDCodec{},
		hashindex.FNVHash[int64](hashindex.Int64Codec{}),
		hashindex.OrderedComparator[int64](),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create hash index: %v\n", err)
		os.Exit(1)
	}

	config := admin.DefaultConfig()
	config.Host = *host
	config.Port = *port
	config.AllowedOrigins = []string{*corsOrigin}
	config.EnableGraphQL = *enableGraphQL

	srv, err := admin.New(config, bpm, ht)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin server: %v\n", err)
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "admin server error: %v\n", err)
		os.Exit(1)
	}
}
