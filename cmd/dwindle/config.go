package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/dwindle/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate, print and explain the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		printOK("config: ok (%d file(s))", len(res.Files))
		return nil
	},
}

var printDefaults bool

var configPrintCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if !printDefaults {
			res, err := loadConfig()
			if err != nil {
				return err
			}
			cfg = res.Config
		}
		if jsonOutput {
			return printJSON(cfg)
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configExplainCmd = &cobra.Command{
	Use:   "explain <yaml.path>",
	Short: "Show a config value and the file that set it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadConfig()
		if err != nil {
			return err
		}
		value, src, err := config.Explain(res, args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			return err
		}
		keyColor.Print("path: ")
		fmt.Println(args[0])
		keyColor.Print("source: ")
		fmt.Println(formatSource(src))
		keyColor.Println("value:")
		fmt.Print(string(out))
		return nil
	},
}

func loadConfig() (*config.LoadResult, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, err
	}
	return config.LoadFromPath(path)
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}

func init() {
	configPrintCmd.Flags().BoolVar(&printDefaults, "defaults", false, "Print built-in defaults (no files)")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configPrintCmd)
	configCmd.AddCommand(configExplainCmd)
	rootCmd.AddCommand(configCmd)
}
