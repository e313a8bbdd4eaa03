package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/idrcli/awsidr/internal/session"
)

// onboardInput is the non-interactive input file shape for --input.
type onboardInput struct {
	Contacts []session.Contact `json:"contacts"`
	TagKey   string            `json:"tagKey,omitempty"`
	TagValue string            `json:"tagValue,omitempty"`
}

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Run the full onboarding workflow for a workload",
	Long: `Collects notification contacts, discovers the workload's tagged
resources, creates recommended CloudWatch alarms, and files the onboarding
support case. Progress is saved after every step, so an interrupted run
resumes where it stopped.

Example:
  awsidr onboard --workload payments --tag-key workload --tag-value payments
  awsidr onboard --workload payments --input onboard.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireWorkload(); err != nil {
			return err
		}

		input, err := readOnboardInput(config.InputFile)
		if err != nil {
			return err
		}
		if input != nil {
			if config.TagKey == "" {
				config.TagKey = input.TagKey
			}
			if config.TagValue == "" {
				config.TagValue = input.TagValue
			}
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
			return fmt.Errorf("--tag-key and --tag-value are required for onboarding")
		}

		// Interactive runs may narrow the region scope before discovery.
		if len(config.Regions) == 0 && input == nil {
			all, err := a.regions.Regions(ctx)
			if err != nil {
				return err
			}
			chosen, err := promptForRegions(all)
			if err != nil {
				return err
			}
			if len(chosen) > 0 {
				a.regions.Restrict(chosen)
			}
		}

		// Contacts: from the input file, an earlier run, or the prompt.
		if !state.StepDone(session.StepContacts) {
			if input != nil {
				state.Contacts = input.Contacts
			} else {
				state.Contacts, err = promptForContacts()
				if err != nil {
					return err
				}
			}
			state.MarkStep(session.StepContacts, session.StepComplete)
			if err := a.store.Save(state); err != nil {
				return err
			}
		}

		resources, err := a.discoverer.Discover(ctx, state.TagKey, state.TagValue)
		if err != nil {
			state.MarkStep(session.StepDiscovery, session.StepFailed)
			_ = a.store.Save(state)
			return err
		}
		state.Resources = resources
		state.MarkStep(session.StepDiscovery, session.StepComplete)
		if err := a.store.Save(state); err != nil {
			return err
		}

		created, err := a.orchestrator.CreateAlarms(ctx, state)
		if err != nil {
			state.MarkStep(session.StepAlarms, session.StepFailed)
			_ = a.store.Save(state)
			return err
		}
		state.MarkStep(session.StepAlarms, session.StepComplete)
		if err := a.store.Save(state); err != nil {
			return err
		}

		skipCase, _ := cmd.Flags().GetBool("skip-support-case")
		if !skipCase {
			if err := a.cases.File(ctx, state); err != nil {
				state.MarkStep(session.StepSupportCase, session.StepFailed)
				_ = a.store.Save(state)
				return err
			}
			state.MarkStep(session.StepSupportCase, session.StepComplete)
			if err := a.store.Save(state); err != nil {
				return err
			}
		}

		fmt.Printf("Onboarding complete: %d resources, %d alarms created", len(resources), created)
		if state.SupportCaseID != "" {
			fmt.Printf(", support case %s", state.SupportCaseID)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	onboardCmd.Flags().StringVar(&config.TagKey, "tag-key", "", "Tag key identifying the workload's resources")
	onboardCmd.Flags().StringVar(&config.TagValue, "tag-value", "", "Tag value identifying the workload's resources")
	onboardCmd.Flags().StringVar(&config.InputFile, "input", "", "JSON input file for non-interactive onboarding")
	onboardCmd.Flags().Bool("skip-support-case", false, "Create alarms without filing the support case")
}

func readOnboardInput(path string) (*onboardInput, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	var input onboardInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parse input file: %w", err)
	}
	if len(input.Contacts) == 0 {
		return nil, fmt.Errorf("input file names no contacts")
	}
	for _, c := range input.Contacts {
		if c.Name == "" || c.Email == "" {
			return nil, fmt.Errorf("every contact needs a name and an email")
		}
	}
	return &input, nil
}
