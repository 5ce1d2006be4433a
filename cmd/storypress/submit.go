package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/storypress/storypress/internal/pipeline"
)

var (
	submitTitle      string
	submitReadingAge int
	submitChildPhoto string
	submitPlacePhoto string
	submitWait       bool
)

var submitCmd = &cobra.Command{
	Use:   "submit [brief-file]",
	Short: "Submit a story request to the pipeline",
	Long: `Submit a customer's story request for production.

The brief file contains the customer's free-form request. Reference
photos of the child and the setting are optional but improve character
consistency.

Examples:
  storypress submit brief.txt --title "Maya and the Lighthouse" --age 5
  storypress submit brief.txt --age 7 --child-photo maya.jpg --wait`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rawBrief, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read brief file: %w", err)
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		story := pipeline.NewStory(submitTitle, string(rawBrief), submitReadingAge)
		if submitChildPhoto != "" {
			story.UploadRefs = append(story.UploadRefs, pipeline.UploadRef{Path: submitChildPhoto, Kind: "child"})
		}
		if submitPlacePhoto != "" {
			story.UploadRefs = append(story.UploadRefs, pipeline.UploadRef{Path: submitPlacePhoto, Kind: "location"})
		}

		a.pipe.Start(ctx)
		if err := a.pipe.Submit(ctx, story); err != nil {
			return err
		}
		fmt.Printf("submitted story %s\n", story.ID)

		if !submitWait {
			return nil
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
			current, err := a.store.Get(story.ID)
			if err != nil {
				return err
			}
			if !current.Terminal() {
				continue
			}
			fmt.Printf("story %s finished: %s\n", current.ID, current.Status)
			if current.Status == pipeline.StatusFailed {
				return fmt.Errorf("stage %s failed: %s", current.FailedStage, current.LastError)
			}
			if current.PDFPath != "" {
				fmt.Printf("  pdf: %s\n", current.PDFPath)
			}
			if current.PrintJobID != "" {
				fmt.Printf("  print job: %s\n", current.PrintJobID)
			}
			return nil
		}
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Working title (the pipeline proposes one if empty)")
	submitCmd.Flags().IntVar(&submitReadingAge, "age", 5, "Reading age of the child")
	submitCmd.Flags().StringVar(&submitChildPhoto, "child-photo", "", "Reference photo of the child")
	submitCmd.Flags().StringVar(&submitPlacePhoto, "place-photo", "", "Reference photo of the setting")
	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "Block until the story reaches a terminal state")

	rootCmd.AddCommand(submitCmd)
}
