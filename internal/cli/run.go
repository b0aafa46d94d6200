package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/westmoney/batchsync/internal/domain/batch"
	"github.com/westmoney/batchsync/internal/domain/batch/field"
	"github.com/westmoney/batchsync/internal/usecase/batchsync"
)

// policyFlags override the default retry policy.
type policyFlags struct {
	concurrency  int
	maxAttempts  int
	baseDelay    time.Duration
	maxDelay     time.Duration
	jitter       float64
	callTimeout  time.Duration
	batchTimeout time.Duration
	maxTargets   int
}

func (p *policyFlags) register(cmd *cobra.Command) {
	def := batchsync.DefaultRetryPolicy()
	f := cmd.Flags()
	f.IntVar(&p.concurrency, "concurrency", def.MaxConcurrency, "max in-flight calls")
	f.IntVar(&p.maxAttempts, "max-attempts", def.MaxAttempts, "attempts per target, first call included")
	f.DurationVar(&p.baseDelay, "base-delay", def.BaseDelay, "backoff before the second attempt")
	f.DurationVar(&p.maxDelay, "max-delay", def.MaxDelay, "backoff ceiling")
	f.Float64Var(&p.jitter, "jitter", def.Jitter, "backoff randomization factor in [0,1]")
	f.DurationVar(&p.callTimeout, "call-timeout", def.CallTimeout, "timeout of one external call (0 = none)")
	f.DurationVar(&p.batchTimeout, "batch-timeout", 0, "deadline for the whole batch (0 = none)")
	f.IntVar(&p.maxTargets, "max-targets", batch.DefaultMaxTargets, "max targets per batch")
}

func (p *policyFlags) policy() batchsync.RetryPolicy {
	return batchsync.RetryPolicy{
		MaxAttempts:    p.maxAttempts,
		BaseDelay:      p.baseDelay,
		MaxDelay:       p.maxDelay,
		Jitter:         p.jitter,
		CallTimeout:    p.callTimeout,
		BatchTimeout:   p.batchTimeout,
		MaxConcurrency: p.concurrency,
	}
}

func newRunCmd(g *globalFlags, deps Deps) *cobra.Command {
	var (
		fieldName string
		value     string
		ids       []string
		idsFile   string
		pf        policyFlags
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply a field value to a list of contacts",
		Args:  cobra.NoArgs,
		Example: `  syncctl run --field whatsapp_consent_status --value opted_in --ids-file ids.txt
  cat ids.txt | syncctl run --field lifecycle_stage --value lead --ids-file -`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := field.Parse(fieldName)
			if err != nil {
				return invalid(err)
			}
			v, err := field.ParseValue(f, value)
			if err != nil {
				return invalid(err)
			}

			targets := ids
			if idsFile != "" {
				fromFile, err := readTargets(idsFile, cmd.InOrStdin())
				if err != nil {
					return invalid(err)
				}
				targets = append(targets, fromFile...)
			}

			req, err := batch.NewRequest(targets, f, v, pf.maxTargets)
			if err != nil {
				return invalid(err)
			}
			return execute(cmd, g, deps, req, pf.policy(), "")
		},
	}

	cmd.Flags().StringVar(&fieldName, "field", "", "field to update (see syncctl fields)")
	cmd.Flags().StringVar(&value, "value", "", "value to apply")
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "comma-separated contact IDs")
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "file with one contact ID per line (- for stdin)")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newRetryCmd(g *globalFlags, deps Deps) *cobra.Command {
	var (
		from string
		pf   policyFlags
	)

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-run the failed targets of a previous result file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prev, err := readReport(from)
			if err != nil {
				return invalid(err)
			}
			f, v, err := prev.Change()
			if err != nil {
				return invalid(err)
			}
			failed := prev.FailedIDs()
			if len(failed) == 0 {
				cmd.PrintErrln("nothing to retry: previous run has no failures")
				return nil
			}

			req, err := batch.NewRequest(failed, f, v, pf.maxTargets)
			if err != nil {
				return invalid(err)
			}
			return execute(cmd, g, deps, req, pf.policy(), prev.BatchID)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "result JSON written by a previous run")
	pf.register(cmd)
	_ = cmd.MarkFlagRequired("from")

	return cmd
}

// execute runs req and reports the outcome. A cancelled context still yields
// a complete report with the unresolved targets marked cancelled.
func execute(
	cmd *cobra.Command, g *globalFlags, deps Deps, req batch.Request, policy batchsync.RetryPolicy, parentID string,
) error {
	logger, err := g.logger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	hcfg, err := g.hubspotConfig(deps, logger)
	if err != nil {
		return err
	}
	if err := policy.Validate(); err != nil {
		return invalid(err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	id := deps.NewID()
	log := logger.With(zap.String("batch_id", id))
	if parentID != "" {
		log = log.With(zap.String("parent_id", parentID))
	}

	engine := batchsync.New(deps.NewClient(hcfg), policy, log, batchsync.WithClock(deps.Now))
	res, err := engine.Run(ctx, req)
	if err != nil {
		return invalid(err)
	}
	return g.finish(cmd, newReport(id, parentID, res))
}
