/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/toothbrush/notion-dump/localvault"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert <export.zip> [more-parts.zip ...]",
	Short: "Convert a Notion HTML export zip into Markdown files",
	Long: `
Point this at the zip file(s) Notion gave you for an "HTML" format export.  Multi-part exports are
fine: pass every part, or just the outer zip if Notion nested the parts inside it.
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		debugLog("  ParentPagesInSubfolders: %v\n", ParentPagesInSubfolders)
		return runConvert(cmd, args)
	},
}

var (
	ParentPagesInSubfolders bool
	SingleLineBreaks        bool
	RemoveTableOfContents   bool
	DryRun                  bool

	IconPropertyName        string
	DefaultAttachmentFolder string
	AutoDetectedLanguages   []string

	LanguageDetectionMinimumLength int
)

func init() {
	rootCmd.AddCommand(convertCmd)

	// Cobra also supports local flags, which will only run
	// when this action is called directly.
	convertCmd.Flags().BoolVar(&ParentPagesInSubfolders, "parent-pages-in-subfolders", true, "nest child pages in a folder named after their parent")
	convertCmd.Flags().BoolVar(&SingleLineBreaks, "single-line-breaks", false, "collapse blank lines between blocks")
	convertCmd.Flags().BoolVar(&RemoveTableOfContents, "remove-table-of-contents", false, "drop table-of-contents blocks instead of flattening them")
	convertCmd.Flags().BoolVarP(&DryRun, "dry-run", "n", false, "run the whole pipeline but write nothing")
	convertCmd.Flags().StringVar(&IconPropertyName, "icon-property-name", "icon", "front-matter property for page icons; empty disables")
	convertCmd.Flags().StringVar(&DefaultAttachmentFolder, "default-attachment-folder", "attachments", "folder name for attachments; empty puts them next to their page")
	convertCmd.Flags().IntVar(&LanguageDetectionMinimumLength, "language-detection-minimum-length", 50, "code blocks at or below this length are left untyped")
	convertCmd.Flags().StringSliceVar(&AutoDetectedLanguages, "auto-detected-languages", localvault.DefaultAutoDetectedLanguages(), "candidate languages for code-block detection")
}

func runConvert(cmd *cobra.Command, args []string) error {
	if LocalStore == "" {
		return fmt.Errorf("cmd: no location set for the Markdown store.  Use --store or set it in your config file")
	}

	storePath, err := homedir.Expand(LocalStore)
	if err != nil {
		return fmt.Errorf("cmd: couldn't expand homedir: %w", err)
	}

	for _, zipPath := range args {
		if _, err := os.Stat(zipPath); err != nil {
			return fmt.Errorf("cmd: couldn't stat archive %s: %w", zipPath, err)
		}
	}

	importer := localvault.Importer{
		StorePath: storePath,
		Sources:   args,
		DryRun:    DryRun,
		Logger:    log.New(os.Stderr, "", log.LstdFlags),
		Config: localvault.Config{
			ParentPagesInSubfolders:        ParentPagesInSubfolders,
			SingleLineBreaks:               SingleLineBreaks,
			RemoveTableOfContents:          RemoveTableOfContents,
			LanguageDetectionMinimumLength: LanguageDetectionMinimumLength,
			AutoDetectedLanguages:          AutoDetectedLanguages,
			IconPropertyName:               IconPropertyName,
			DefaultAttachmentFolder:        DefaultAttachmentFolder,
		},
	}

	result, err := importer.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("cmd: import failed: %w", err)
	}

	fmt.Printf("Done: %d notes, %d attachments, %d skipped, %d failed.\n",
		result.Notes, result.Attachments, result.Skipped, result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("cmd: %d entries failed; see log above", result.Failed)
	}

	return nil
}
