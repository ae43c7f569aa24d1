package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/docile-dev/docile"
	"github.com/docile-dev/docile/schemafile"
)

var (
	cfgFile    string
	schemaPath string
)

var rootCmd = &cobra.Command{
	Use:   "docile",
	Short: "Docile CLI",
	Long:  "Docile is a schema-driven document modeling engine; this CLI validates and normalizes documents against declarative schema files.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default docile.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "", "path to schema definition file (required)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(normalizeCmd)
}

// initConfig reads process-wide defaults from the config file: key_prefix and
// key_suffix feed the global key affix defaults applied to schemas compiled
// afterwards.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docile")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("DOCILE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &nf) {
			return
		}
		fmt.Fprintf(os.Stderr, "docile: config: %v\n", err)
		return
	}
	docile.SetDefaultKeyAffixes(viper.GetString("key_prefix"), viper.GetString("key_suffix"))
}

// loadModel loads the schema definition named by --schema.
func loadModel() (*docile.Model, error) {
	if schemaPath == "" {
		return nil, fmt.Errorf("a schema definition is required (--schema)")
	}
	return schemafile.LoadFile(schemaPath)
}
