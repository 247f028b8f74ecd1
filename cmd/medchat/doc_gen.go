//go:build ignore
// +build ignore

package main

import (
	"log"

	"github.com/spf13/cobra/doc"

	medchat "github.com/mithrel/medchat/internal/cli"
)

func main() {
	root := medchat.NewRootCmd()
	root.DisableAutoGenTag = true

	if err := doc.GenMarkdownTree(root, "./docs/markdown"); err != nil {
		log.Fatal(err)
	}

	header := &doc.GenManHeader{
		Title:   "MEDCHAT",
		Section: "1",
	}
	if err := doc.GenManTree(root, header, "./docs/man"); err != nil {
		log.Fatal(err)
	}
}
