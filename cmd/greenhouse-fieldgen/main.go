// Command greenhouse-fieldgen generates the field registry of package field
// from its YAML definition.
//
// Usage:
//
//	greenhouse-fieldgen -input fields.yaml -output registry_gen.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"
)

func main() {
	input := flag.String("input", "", "Field set YAML")
	output := flag.String("output", "", "Generated Go file")
	flag.Parse()

	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: greenhouse-fieldgen -input <fields.yaml> -output <registry_gen.go>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*input, *output); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(input, output string) error {
	fs, err := LoadFieldSet(input)
	if err != nil {
		return fmt.Errorf("loading %s: %w", input, err)
	}

	if err := writeFormatted(output, GenerateRegistry(fs)); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", output)
	return nil
}

// GenerateRegistry renders the registry source for fs.
func GenerateRegistry(fs *RawFieldSet) string {
	var b strings.Builder
	renderTemplate(&b, "registry", fs)
	return b.String()
}

func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
