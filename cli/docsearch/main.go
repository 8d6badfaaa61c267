package main

import (
	"os"

	docsearchcmder "github.com/papercomputeco/docsearch/cmd/docsearch"
)

func main() {
	cmd := docsearchcmder.NewDocsearchCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
