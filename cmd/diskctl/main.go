package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mnohosten/laura-db/pkg/snapshot"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "snapshot":
		runSnapshot(os.Args[2:])
	case "restore":
		runRestore(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: diskctl <snapshot|restore> [flags]")
}

func runSnapshot(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	src := fs.String("src", "", "path to the paged heap file to snapshot")
	dst := fs.String("dst", "", "path to write the compressed snapshot to")
	fs.Parse(args)

	if *src == "" || *dst == "" {
		fmt.Fprintln(os.Stderr, "diskctl snapshot: -src and -dst are required")
		os.Exit(1)
	}

	out, err := os.Create(*dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diskctl snapshot: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := snapshot.Snapshot(*src, out); err != nil {
		fmt.Fprintf(os.Stderr, "diskctl snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("wrote snapshot of %s to %s\n", *src, *dst)
}

func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	src := fs.String("src", "", "path to a compressed snapshot produced by diskctl snapshot")
	dst := fs.String("dst", "", "path to write the restored heap file to")
	fs.Parse(args)

	if *src == "" || *dst == "" {
		fmt.Fprintln(os.Stderr, "diskctl restore: -src and -dst are required")
		os.Exit(1)
	}

	in, err := os.Open(*src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diskctl restore: %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	if err := snapshot.Restore(in, *dst); err != nil {
		fmt.Fprintf(os.Stderr, "diskctl restore: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("restored %s to %s\n", *src, *dst)
}
