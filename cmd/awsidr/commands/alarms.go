package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idrcli/awsidr/internal/session"
)

var createAlarmsCmd = &cobra.Command{
	Use:   "create-alarms",
	Short: "Create recommended alarms for the workload's discovered resources",
	Long: `Re-runs alarm creation against the resources recorded in the saved
workload state. Use after adding resources or when a previous run was
interrupted. Lambda@Edge alarms reuse the regions chosen on the first run.

Example:
  awsidr create-alarms --workload payments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireWorkload(); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, config, logger)
		if err != nil {
			return err
		}
		state, err := a.loadState(config)
		if err != nil {
			return err
		}
		if len(state.Resources) == 0 {
			return fmt.Errorf("no resources recorded for %q; run onboard or update-workload first", config.Workload)
		}

		created, err := a.orchestrator.CreateAlarms(ctx, state)
		if saveErr := a.store.Save(state); saveErr != nil && err == nil {
			err = saveErr
		}
		if err != nil {
			return err
		}

		fmt.Printf("Created %d alarms for %d resources\n", created, len(state.Resources))
		return nil
	},
}

var ingestAlarmsCmd = &cobra.Command{
	Use:   "ingest-alarms",
	Short: "Record existing IDR alarms into the workload state",
	Long: `Scans every region for alarms carrying this tool's name prefix and
records them in the saved workload state, recovering the per-region layout
of Lambda@Edge alarm groups created by earlier runs.

Example:
  awsidr ingest-alarms --workload payments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireWorkload(); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, config, logger)
		if err != nil {
			return err
		}
		state, err := a.loadState(config)
		if err != nil {
			return err
		}

		found, err := a.orchestrator.IngestAlarms(ctx, state)
		if saveErr := a.store.Save(state); saveErr != nil && err == nil {
			err = saveErr
		}
		if err != nil {
			return err
		}

		fmt.Printf("Ingested %d alarms\n", found)
		return nil
	},
}

var updateWorkloadCmd = &cobra.Command{
	Use:   "update-workload",
	Short: "Re-discover resources and update the onboarding case",
	Long: `Re-runs tag discovery for the workload, saves the refreshed resource
list, and appends the updated state to the onboarding support case.

Example:
  awsidr update-workload --workload payments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireWorkload(); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, config, logger)
		if err != nil {
			return err
		}
		state, err := a.loadState(config)
		if err != nil {
			return err
		}
		if state.TagKey == "" || state.TagValue == "" {
			return fmt.Errorf("no tag recorded for %q; run onboard first", config.Workload)
		}

		resources, err := a.discoverer.Discover(ctx, state.TagKey, state.TagValue)
		if err != nil {
			return err
		}
		state.Resources = resources
		if err := a.store.Save(state); err != nil {
			return err
		}

		skipCase, _ := cmd.Flags().GetBool("skip-support-case")
		if !skipCase && state.SupportCaseID != "" {
			if err := a.cases.File(ctx, state); err != nil {
				return err
			}
			state.MarkStep(session.StepCaseFollowUp, session.StepComplete)
			if err := a.store.Save(state); err != nil {
				return err
			}
		}

		fmt.Printf("Workload updated: %d resources\n", len(resources))
		return nil
	},
}

func init() {
	updateWorkloadCmd.Flags().Bool("skip-support-case", false, "Update state without touching the support case")
}
