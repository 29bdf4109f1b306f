package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/fittrack-backend/internal/client/api"
)

func newLogCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "log", Short: "Record a workout or bodyweight entry"}
	cmd.AddCommand(newLogExerciseCommand(o), newLogBodyweightCommand(o))
	return cmd
}

func newLogExerciseCommand(o *options) *cobra.Command {
	var exerciseID, routineID string
	var metrics []string
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Log an exercise with metrics such as --metric reps=10",
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseMetrics(metrics)
			if err != nil {
				return o.report(cmd, "log exercise", nil, err)
			}
			return o.execute(cmd, "log exercise", func(ctx context.Context, c *api.Client) ([]string, error) {
				l, err := c.LogExercise(ctx, exerciseID, routineID, parsed)
				if err != nil {
					return nil, err
				}
				return []string{"id=" + l.ID, "metrics=" + string(l.Metrics)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&exerciseID, "exercise", "", "exercise id")
	cmd.Flags().StringVar(&routineID, "routine", "", "routine id")
	cmd.Flags().StringArrayVar(&metrics, "metric", nil, "metric as key=value, repeatable")
	_ = cmd.MarkFlagRequired("exercise")
	return cmd
}

func newLogBodyweightCommand(o *options) *cobra.Command {
	var unit, notes string
	cmd := &cobra.Command{
		Use:   "bodyweight VALUE",
		Short: "Log a bodyweight measurement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return o.report(cmd, "log bodyweight", nil, fmt.Errorf("invalid weight %q", args[0]))
			}
			return o.execute(cmd, "log bodyweight", func(ctx context.Context, c *api.Client) ([]string, error) {
				l, err := c.LogBodyweight(ctx, value, unit, notes)
				if err != nil {
					return nil, err
				}
				return []string{"id=" + l.ID, fmt.Sprintf("weight_kg=%.2f", l.WeightKG)}, nil
			})
		},
	}
	cmd.Flags().StringVar(&unit, "unit", "kg", "kg or lb")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	return cmd
}

func newLogsCommand(o *options) *cobra.Command {
	var page, limit int
	var bodyweight bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List recorded exercise logs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bodyweight {
				return o.execute(cmd, "logs", func(ctx context.Context, c *api.Client) ([]string, error) {
					entries, err := c.ListBodyweight(ctx)
					if err != nil {
						return nil, err
					}
					out := make([]string, 0, len(entries))
					for _, e := range entries {
						out = append(out, fmt.Sprintf("%s  %.2f kg", e.RecordedAt.Format("2006-01-02 15:04"), e.WeightKG))
					}
					return out, nil
				})
			}
			return o.execute(cmd, "logs", func(ctx context.Context, c *api.Client) ([]string, error) {
				res, err := c.ListExerciseLogs(ctx, page, limit)
				if err != nil {
					return nil, err
				}
				out := make([]string, 0, len(res.Items)+1)
				for _, l := range res.Items {
					line := fmt.Sprintf("%s  %s %s", l.CreatedAt.Format("2006-01-02 15:04"), l.Exercise.Name, string(l.Metrics))
					if l.RoutineName != nil {
						line += " [" + *l.RoutineName + "]"
					}
					out = append(out, line)
				}
				out = append(out, fmt.Sprintf("page %d/%d (%d total)", res.Page, res.TotalPages, res.Total))
				return out, nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "entries per page")
	cmd.Flags().BoolVar(&bodyweight, "bodyweight", false, "list bodyweight entries instead")
	return cmd
}

// parseMetrics turns key=value pairs into a JSON-ready map. Numeric and
// boolean values keep their type.
func parseMetrics(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one --metric is required")
	}
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("metric %q must be key=value", p)
		}
		v = strings.TrimSpace(v)
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			out[k] = n
		} else if b, err := strconv.ParseBool(v); err == nil {
			out[k] = b
		} else {
			out[k] = v
		}
	}
	return out, nil
}
