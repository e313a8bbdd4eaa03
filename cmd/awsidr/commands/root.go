// Package commands implements the awsidr CLI surface.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/idrcli/awsidr/internal/awsapi"
	"github.com/idrcli/awsidr/internal/telemetry"
	"github.com/idrcli/awsidr/internal/version"
)

var (
	config Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "awsidr",
	Short: "Incident Detection and Response onboarding tool",
	Long: `awsidr - AWS Incident Detection and Response onboarding

Discover. Alarm. Onboard.`,
	Version: version.Current,
	Run:     nil,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&config.Region, "region", awsapi.USEast1, "AWS region for the session")
	rootCmd.PersistentFlags().StringVar(&config.Profile, "profile", "", "AWS shared config profile")
	rootCmd.PersistentFlags().StringVar(&config.Workload, "workload", "", "Workload name (state file key)")
	rootCmd.PersistentFlags().StringSliceVar(&config.Regions, "regions", nil, "Restrict operations to these regions")
	rootCmd.PersistentFlags().StringVar(&config.OTLPEndpoint, "otel-endpoint", "", "OTLP trace endpoint")
	rootCmd.PersistentFlags().BoolVarP(&config.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd)
	})

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		shutdown, err := telemetry.Init(cmd.Context(), version.AppName, version.Current, config.OTLPEndpoint)
		if err != nil {
			return err
		}
		cobra.OnFinalize(func() { _ = shutdown(cmd.Context()) })
		return nil
	}

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(createAlarmsCmd)
	rootCmd.AddCommand(ingestAlarmsCmd)
	rootCmd.AddCommand(updateWorkloadCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetConfigFile(filepath.Join(home, ".awsidr.yaml"))
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("AWSIDR")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	if config.Workload == "" {
		config.Workload = viper.GetString("workload")
	}
	if config.Profile == "" {
		config.Profile = viper.GetString("profile")
	}
}

func initLogger() {
	level := slog.LevelInfo
	if config.Verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func requireWorkload() error {
	if strings.TrimSpace(config.Workload) == "" {
		return fmt.Errorf("--workload is required (or set workload in ~/.awsidr.yaml)")
	}
	return nil
}

func renderHelp(cmd *cobra.Command) {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00AAFF")).
		MarginBottom(1)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA"))

	fmt.Println(titleStyle.Render(fmt.Sprintf("AWSIDR %s", version.Current)))
	fmt.Println("AWS Incident Detection and Response onboarding tool.")

	fmt.Println(titleStyle.Render("USAGE"))
	fmt.Printf("  %s\n\n", cmd.UseLine())

	fmt.Println(titleStyle.Render("COMMANDS"))
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() {
			fmt.Printf("  %-16s %s\n", c.Name(), c.Short)
		}
	}
	fmt.Println("")

	fmt.Println(titleStyle.Render("EXAMPLES"))
	fmt.Println("  awsidr onboard --workload payments --tag-key workload --tag-value payments")
	fmt.Println("  awsidr create-alarms --workload payments")
	fmt.Println("  awsidr ingest-alarms --workload payments")
	fmt.Println("")

	fmt.Println(titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Println(flagStyle.Render(output))
	})
	fmt.Println("")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", version.AppName, version.Current)
	},
}
