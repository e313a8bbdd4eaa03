package commands

import (
	"context"
	"log/slog"
	"sync"

	"github.com/idrcli/awsidr/internal/alarm"
	"github.com/idrcli/awsidr/internal/awsapi"
	"github.com/idrcli/awsidr/internal/edge"
	"github.com/idrcli/awsidr/internal/session"
	"github.com/idrcli/awsidr/internal/validate"
	"github.com/idrcli/awsidr/internal/workload"
)

// Config carries the root command's persistent settings.
type Config struct {
	Region       string
	Profile      string
	Workload     string
	TagKey       string
	TagValue     string
	Regions      []string
	InputFile    string
	OTLPEndpoint string
	Verbose      bool
}

// regionSource is what the workflows use to enumerate regions.
type regionSource interface {
	Regions(ctx context.Context) ([]string, error)
}

// regionScope serves the account's region directory, optionally restricted
// to a set the user picked. Restriction applies to everything downstream:
// discovery, edge scans, and alarm ingestion.
type regionScope struct {
	mu       sync.Mutex
	base     regionSource
	override []string
}

func (r *regionScope) Regions(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	override := r.override
	r.mu.Unlock()
	if len(override) > 0 {
		return override, nil
	}
	return r.base.Regions(ctx)
}

func (r *regionScope) Restrict(regions []string) {
	r.mu.Lock()
	r.override = regions
	r.mu.Unlock()
}

// app wires the accessors, validators, and workflows behind each command.
type app struct {
	log          *slog.Logger
	sess         *awsapi.Session
	accountID    string
	regions      *regionScope
	store        *session.Store
	discoverer   *workload.Discoverer
	orchestrator *workload.Orchestrator
	cases        *workload.CaseService
}

func newApp(ctx context.Context, cfg Config, log *slog.Logger) (*app, error) {
	sess, err := awsapi.NewSession(ctx, cfg.Region, cfg.Profile)
	if err != nil {
		return nil, err
	}
	accountID, err := sess.VerifyIdentity(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("Authenticated", "account", accountID, "region", cfg.Region)

	regions := &regionScope{base: awsapi.NewRegionDirectory(sess, log)}
	if len(cfg.Regions) > 0 {
		regions.Restrict(cfg.Regions)
	}

	cw := awsapi.NewCloudWatchAccessor(sess, log)
	s3 := awsapi.NewS3Accessor(sess, log)

	cache := edge.NewAssociationCache(awsapi.NewCloudFrontAccessor(sess, log), log)
	scanner := edge.NewRegionScanner(cw, regions, log)
	configurator := edge.NewConfigurator(cache, scanner, log)

	checker := validate.NewConditionalChecker(
		awsapi.NewSNSAccessor(sess, log),
		awsapi.NewLambdaAccessor(sess, log),
		awsapi.NewDynamoDBAccessor(sess, log),
		awsapi.NewKeyspacesAccessor(sess, log),
		awsapi.NewRDSAccessor(sess, log),
		s3,
		log,
	)
	validator := validate.NewValidator(cw, checker, log)

	catalog, err := alarm.LoadCatalog()
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(log)
	if err != nil {
		return nil, err
	}

	return &app{
		log:       log,
		sess:      sess,
		accountID: accountID,
		regions:   regions,
		store:     store,
		discoverer: workload.NewDiscoverer(
			awsapi.NewTaggingAccessor(sess, log), regions, s3, log),
		orchestrator: workload.NewOrchestrator(
			catalog, alarm.NewBuilder(log), validator, configurator, cw, regions, log),
		cases: workload.NewCaseService(awsapi.NewSupportAccessor(sess, log), log),
	}, nil
}

// loadState opens the saved state for the configured workload and stamps the
// account and tag settings into it.
func (a *app) loadState(cfg Config) (*session.State, error) {
	state, err := a.store.Load(cfg.Workload)
	if err != nil {
		return nil, err
	}
	state.AccountID = a.accountID
	if cfg.TagKey != "" {
		state.TagKey = cfg.TagKey
	}
	if cfg.TagValue != "" {
		state.TagValue = cfg.TagValue
	}
	return state, nil
}
