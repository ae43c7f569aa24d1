package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docile-dev/docile"
)

var (
	normalizeVirtuals bool
	normalizeISODates bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [document]",
	Short: "Print a document after coercion, defaults, and minimization",
	Long:  "Run a JSON document through the schema pipeline and print the serialized result: coerced values, resolved defaults, empty fields minimized away.",
	Args:  cobra.ExactArgs(1),
	RunE:  runNormalize,
}

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeVirtuals, "virtuals", false, "include virtual fields in the output")
	normalizeCmd.Flags().BoolVar(&normalizeISODates, "iso-dates", true, "render dates as ISO-8601 strings")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	model, err := loadModel()
	if err != nil {
		return err
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	doc, err := model.FromJSON(b)
	if err != nil {
		return err
	}
	out, err := doc.ToJSON(docile.ExportOptions{
		Virtuals:  docile.Bool(normalizeVirtuals),
		DateToISO: docile.Bool(normalizeISODates),
	})
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if doc.HasErrors() {
		for _, fe := range doc.Errors() {
			fmt.Fprintf(os.Stderr, "%s: %s at %s: %s\n", args[0], fe.Kind, fe.Field, fe.Message)
		}
		return fmt.Errorf("document had %d pipeline error(s)", len(doc.Errors()))
	}
	return nil
}
