package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [documents...]",
	Short: "Validate JSON documents against a schema definition",
	Long:  "Feed each JSON document through the schema's write pipeline and report every collected field error. Exits non-zero when any document fails.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	model, err := loadModel()
	if err != nil {
		return err
	}
	failed := 0
	for _, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := model.FromJSON(b)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if !doc.HasErrors() {
			fmt.Printf("%s: ok\n", path)
			continue
		}
		failed++
		for _, fe := range doc.Errors() {
			fmt.Fprintf(os.Stderr, "%s: %s at %s: %s (got %v)\n", path, fe.Kind, fe.Field, fe.Message, fe.Attempted)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed validation", failed, len(args))
	}
	return nil
}
