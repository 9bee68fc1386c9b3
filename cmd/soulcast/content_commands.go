package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"soulcast/internal/api"
	"soulcast/internal/content"
	"soulcast/internal/generation"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var refresh bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List generated podcasts and Bible studies, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(cmd, func(svc service) error {
				items, err := svc.List(cmd.Context(), refresh)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.ContentListResponse{Items: api.FromItems(items)})
				}
				out := cmd.OutOrStdout()
				if len(items) == 0 {
					fmt.Fprintln(out, "No content yet. Create one with `soulcast generate`.")
					return nil
				}
				fmt.Fprintln(out, renderContentTable(items, shouldColorize(out)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Reload the list from the backend (daemon mode)")
	return cmd
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var topic string
	var duration int
	var voices []string
	var wait bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "generate [topic]",
		Short: "Generate a podcast episode on a topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && strings.TrimSpace(topic) == "" {
				topic = args[0]
			}
			return ctx.withService(cmd, func(svc service) error {
				item, err := svc.Generate(cmd.Context(), generation.Request{
					Topic:           topic,
					DurationMinutes: duration,
					Voices:          voices,
				})
				if err != nil {
					return err
				}
				return reportSubmission(cmd, svc, item, wait, jsonOutput)
			})
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Episode topic")
	cmd.Flags().IntVarP(&duration, "duration", "d", 10, "Episode length in minutes")
	cmd.Flags().StringSliceVar(&voices, "voice", nil, "Narrator voice (repeat for each, at least two; see `soulcast voices`)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the episode is ready or fails")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newBibleStudyCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "bible-study <book> <chapter>",
		Aliases: []string{"study"},
		Short:   "Generate a Bible study for one chapter",
		Example: "  soulcast bible-study john 3\n  soulcast bible-study 1 corinthians 13",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, chapter, err := parseChapterArgs(args)
			if err != nil {
				return err
			}
			return ctx.withService(cmd, func(svc service) error {
				item, err := svc.BibleStudy(cmd.Context(), book, chapter)
				if err != nil {
					if item.ID != "" && !jsonOutput {
						describeItem(cmd.ErrOrStderr(), item)
					}
					return err
				}
				return reportSubmission(cmd, svc, item, wait, jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the study is ready or fails")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// parseChapterArgs joins every argument but the last into the book name.
func parseChapterArgs(args []string) (string, int, error) {
	last := args[len(args)-1]
	chapter, err := strconv.Atoi(last)
	if err != nil || chapter <= 0 {
		return "", 0, fmt.Errorf("chapter must be a positive number, got %q", last)
	}
	return strings.Join(args[:len(args)-1], " "), chapter, nil
}

func reportSubmission(cmd *cobra.Command, svc service, item content.Item, wait, jsonOutput bool) error {
	out := cmd.OutOrStdout()
	var removed error
	if wait && item.IsGenerating() {
		if !jsonOutput {
			fmt.Fprintf(out, "Submitted %s, waiting for it to finish...\n", item.ID)
		}
		finished, err := svc.Await(cmd.Context(), item.ID)
		switch {
		case errors.Is(err, errJobRemoved):
			removed = err
		case err != nil:
			return err
		}
		item = finished
	}
	if jsonOutput {
		if err := writeJSON(cmd, api.ItemResponse{Item: api.FromItem(item)}); err != nil {
			return err
		}
		return removed
	}
	describeItem(out, item)
	if removed != nil {
		return removed
	}
	if item.Status == content.StatusFailed {
		return errors.New("generation failed")
	}
	return nil
}

func newVoicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "voices",
		Short:       "List narrator voices",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			voices := generation.Voices()
			rows := make([][]string, 0, len(voices))
			for _, voice := range voices {
				rows = append(rows, []string{voice.Name, voice.DisplayName, voice.Description})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Voice", "Name", "Description"}, rows, nil))
			return nil
		},
	}
}

func newTopicsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "topics",
		Short:       "Show suggested topics and episode lengths",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, topic := range generation.SuggestedTopics {
				fmt.Fprintf(out, "  %s\n", topic)
			}
			lengths := make([]string, 0, len(generation.AvailableDurations))
			for _, minutes := range generation.AvailableDurations {
				lengths = append(lengths, strconv.Itoa(minutes))
			}
			fmt.Fprintf(out, "\nLengths (minutes): %s\n", strings.Join(lengths, ", "))
			return nil
		},
	}
}
