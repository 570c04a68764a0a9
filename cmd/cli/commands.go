package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soundtrace/hotlist/pkg/hotlist"
	"github.com/soundtrace/hotlist/pkg/models"
)

type serviceFactory func() (hotlist.Service, error)

// readEvents loads a JSON array of fingerprint events from a file.
func readEvents(path string) ([]models.FingerprintEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	var events []models.FingerprintEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse events file: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no fingerprint events in %s", path)
	}
	return events, nil
}

func newAddCommand(newService serviceFactory) *cobra.Command {
	var class string
	var durationMs int

	cmd := &cobra.Command{
		Use:   "add <path> <events.json>",
		Short: "Register a reference track from a fingerprint event file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			contentClass, err := models.ParseContentClass(class)
			if err != nil {
				return err
			}

			events, err := readEvents(args[1])
			if err != nil {
				return err
			}

			svc, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			trackID, err := svc.RegisterTrack(cmd.Context(), args[0], contentClass, durationMs, events)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registered track %s (%s) with %d fingerprints\n", args[0], trackID, len(events))
			return nil
		},
	}

	cmd.Flags().StringVar(&class, "class", "music", "Content class: advert, music, speech or jingle")
	cmd.Flags().IntVar(&durationMs, "duration-ms", 0, "Track duration in milliseconds")
	return cmd
}

func newListCommand(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all reference tracks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			tracks, err := svc.ListTracks()
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracks in the hotlist")
				return nil
			}

			for i, t := range tracks {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s [%s] fingerprints=%d duration=%dms (ID: %s)\n",
					i+1, t.Path, t.Class, t.FingerprintCount, t.DurationMs, t.TrackID)
			}
			return nil
		},
	}
}

func newDeleteCommand(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <track-id>",
		Short: "Delete a reference track and its fingerprints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			track, err := svc.GetTrackByID(args[0])
			if err != nil {
				return fmt.Errorf("track %s not found: %w", args[0], err)
			}
			if err := svc.DeleteTrack(args[0]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted track %s (%s)\n", track.Path, args[0])
			return nil
		},
	}
}

func newMatchCommand(newService serviceFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "match <events.json>",
		Short: "Match a batch of fingerprint events against the hotlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := readEvents(args[0])
			if err != nil {
				return err
			}

			svc, err := newService()
			if err != nil {
				return err
			}
			defer svc.Close()

			for _, ev := range events {
				svc.Push(ev)
			}

			result, err := svc.Trigger(cmd.Context())
			if err != nil {
				return err
			}

			if result.TrackID == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No match")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Match: %s [%s]\n", result.File, result.Class)
			fmt.Fprintf(cmd.OutOrStdout(), "   diff=%d sync=%d/%d query=%d\n",
				result.Diff, result.MatchesSync, result.MatchesTotal, result.FingersCountMeasurements)
			fmt.Fprintf(cmd.OutOrStdout(), "   tRefAvg=%.2fs tRefStd=%.2fs confidence=%.3f/%.3f\n",
				result.TRefAvg, result.TRefStd, result.Confidence1, result.Confidence2)
			fmt.Fprintf(cmd.OutOrStdout(), "   softmax=%v\n", result.Softmax)
			return nil
		},
	}
}
