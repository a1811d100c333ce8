/*
Copyright © 2024 paul <paul@denknerd.org>
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/fatih/structs"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var (
	// Store the result of binding cobra flags
	Config string
	// ConfigActual is the resolved (homedir-expanded) config path actually read.
	ConfigActual string
	Debug        bool

	LocalStore string

	ParsedConfig YamlConfig
)

// Build the cobra command that handles our command line tool.
var rootCmd = &cobra.Command{
	Use:   "notion-dump",
	Short: "Convert a Notion HTML export into a local Markdown tree",
	Long: `
Have you ever wanted to leave Notion but keep your notes?  Feed this tool the zip(s) of an HTML
export and it will rebuild the page hierarchy as a folder of plain Markdown files, with links,
attachments and timestamps intact.
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// You can bind cobra and viper in a few locations, but PersistentPreRunE on the root command works well
		if err := initializeConfig(cmd); err != nil {
			return fmt.Errorf("notion-dump: failed to initialise config: %w", err)
		}
		return nil
	},
}

func init() {
	// Define cobra flags, the default value has the lowest (least significant) precedence
	rootCmd.PersistentFlags().StringVar(&Config, "config", "", "config file location (default: ~/.config/notion-dump.yaml, respects NOTION_DUMP_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "display debug output")
	rootCmd.PersistentFlags().StringVar(&LocalStore, "store", "", "location to save converted Markdown")
}

func initializeConfig(cmd *cobra.Command) error {
	explicit := Config != ""
	if Config == "" {
		// Did the user provide an ENV?
		envConfig := os.Getenv("NOTION_DUMP_CONFIG")
		if envConfig != "" {
			Config = envConfig
			explicit = true
		} else {
			// As fallback, search for config in home XDG-ish directory
			Config = "~/.config/notion-dump.yaml"
		}
	}
	config, err := homedir.Expand(Config)
	if err != nil {
		return fmt.Errorf("notion-dump: unable to expand homedir: %w", err)
	}
	ConfigActual = config

	if _, err := os.Stat(ConfigActual); errors.Is(err, os.ErrNotExist) {
		if explicit {
			fmt.Printf("Couldn't read config file %s, does it exist?  Override with --config.\n", ConfigActual)
			return fmt.Errorf("notion-dump: specified config file does not exist: %w", err)
		}
		// No config file is fine; flags and defaults cover everything.
		return nil
	}

	yamlFile, err := os.ReadFile(ConfigActual)
	if err != nil {
		return fmt.Errorf("notion-dump: error reading config file: %w", err)
	}

	// I'd like to bark if a user sets a flag we don't recognise:
	if err := yaml.UnmarshalStrict(yamlFile, &ParsedConfig); err != nil {
		return fmt.Errorf("notion-dump: issue parsing config file: %w", err)
	}

	// Bind the current command's flags to the parsed YAML config
	if err := bindFlags(cmd, ParsedConfig); err != nil {
		return fmt.Errorf("notion-dump: failed to bind flags: %w", err)
	}

	return nil
}

type YamlConfig struct {
	ParentPagesInSubfolders *bool `yaml:"parent-pages-in-subfolders"`
	SingleLineBreaks        *bool `yaml:"single-line-breaks"`
	RemoveTableOfContents   *bool `yaml:"remove-table-of-contents"`
	DryRun                  *bool `yaml:"dry-run"`

	StorePath               string   `yaml:"store"`
	IconPropertyName        *string  `yaml:"icon-property-name"`
	DefaultAttachmentFolder *string  `yaml:"default-attachment-folder"`
	AutoDetectedLanguages   []string `yaml:"auto-detected-languages"`

	LanguageDetectionMinimumLength *int `yaml:"language-detection-minimum-length"`
}

// Bind each cobra flag to its associated YAML configuration key
func bindFlags(cmd *cobra.Command, v YamlConfig) error {
	for _, field := range structs.Fields(v) {
		key := field.Tag("yaml")
		if key == "" {
			return fmt.Errorf("notion-dump: could not retrieve struct tag 'yaml'")
		}
		if flag := cmd.Flag(key); flag == nil {
			// hmm... the flag is unknown.  but that can legitimately happen if you're running
			// e.g. `config show` which has no `single-line-breaks` flag but your YAML file does
			// define that key...
			continue
		}
		if !cmd.Flags().Changed(key) {
			switch field.Kind() {
			case reflect.Ptr:
				// YamlConfig uses pointers so that "key absent" and "zero value" stay apart.
				switch p := field.Value().(type) {
				case *bool:
					if p != nil {
						cmd.Flags().Set(key, fmt.Sprintf("%v", *p))
					}
				case *int:
					if p != nil {
						cmd.Flags().Set(key, fmt.Sprintf("%d", *p))
					}
				case *string:
					if p != nil {
						cmd.Flags().Set(key, *p)
					}
				default:
					return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
				}

			case reflect.String:
				s, ok := field.Value().(string)
				if !ok {
					return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
				}
				if s != "" {
					cmd.Flags().Set(key, s)
				}

			case reflect.Slice:
				ss, ok := field.Value().([]string)
				if !ok {
					return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
				}
				for _, s := range ss {
					// yes, repeatedly calling Set() appends to the slice...
					cmd.Flags().Set(key, s)
				}

			default:
				return fmt.Errorf("notion-dump: found unrecognised field: %+v", field)
			}
		}
	}

	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Flags are only available after (or inside, presumably) the .Execute() thing.
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("notion-dump: execution error: %w", err)
	}

	return nil
}
