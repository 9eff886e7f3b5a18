// genframes writes the sample frame streams used for exercising the
// scanner and the framedump CLI.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/motleylight/LogParser/internal/fixture"
)

func main() {
	var (
		outDir = flag.String("dir", "testdata", "Directory to write fixture files into")
		seed   = flag.Int64("seed", 42, "Random seed for reproducible streams")
		list   = flag.Bool("list", false, "List fixture case names and sizes without writing")
	)
	flag.Parse()

	if *list {
		corpus := fixture.Corpus(*seed)
		names := make([]string, 0, len(corpus))
		for name := range corpus {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-34s %d bytes\n", name, len(corpus[name]))
		}
		return
	}

	if err := fixture.WriteCorpus(*outDir, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "genframes: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Fixture files written to %s\n", *outDir)
}
