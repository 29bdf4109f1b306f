package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/fittrack-backend/internal/client/api"
)

func newPlansCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{Use: "plans", Short: "Manage workout plans"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your plans",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.execute(cmd, "plans list", func(ctx context.Context, c *api.Client) ([]string, error) {
					plans, err := c.ListPlans(ctx)
					if err != nil {
						return nil, err
					}
					out := make([]string, 0, len(plans))
					for _, p := range plans {
						out = append(out, fmt.Sprintf("%s  %s", p.ID, p.Name))
					}
					return out, nil
				})
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a plan",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.execute(cmd, "plans create", func(ctx context.Context, c *api.Client) ([]string, error) {
					p, err := c.CreatePlan(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return []string{"id=" + p.ID, "name=" + p.Name}, nil
				})
			},
		},
	)
	return cmd
}

func newExercisesCommand(o *options) *cobra.Command {
	var description, trackingType string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.execute(cmd, "exercises create", func(ctx context.Context, c *api.Client) ([]string, error) {
				e, err := c.CreateExercise(ctx, args[0], description, trackingType)
				if err != nil {
					return nil, err
				}
				return []string{"id=" + e.ID, "name=" + e.Name, "tracking_type=" + e.TrackingType}, nil
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "exercise description")
	create.Flags().StringVar(&trackingType, "tracking-type", "reps_sets_weight", "reps_sets_weight, time_based, distance_based or calories")

	cmd := &cobra.Command{Use: "exercises", Short: "Manage exercises"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List your exercises",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return o.execute(cmd, "exercises list", func(ctx context.Context, c *api.Client) ([]string, error) {
					exercises, err := c.ListExercises(ctx)
					if err != nil {
						return nil, err
					}
					out := make([]string, 0, len(exercises))
					for _, e := range exercises {
						out = append(out, fmt.Sprintf("%s  %s (%s)", e.ID, e.Name, e.TrackingType))
					}
					return out, nil
				})
			},
		},
		create,
	)
	return cmd
}
