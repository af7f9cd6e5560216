package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sofmeright/imagefreight/src/artifact"
	"github.com/sofmeright/imagefreight/src/lint"
	"github.com/sofmeright/imagefreight/src/objectstore"
	"github.com/sofmeright/imagefreight/src/output"
	"github.com/sofmeright/imagefreight/src/storage"
	"github.com/sofmeright/imagefreight/src/version"
)

var (
	deployDryRun   bool
	deployPrune    bool
	deployNoVerify bool
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Mirror the artifact tree into the components bucket",
	Long: `Mirror the artifact tree under store.key_prefix in the components
bucket. The bucket and its settings belong to the storage stack: deploy
refuses to run until that stack has created the bucket, and only reports
settings (versioning, lifecycle, default encryption, TLS-only policy)
that differ from what the stack declares.

Objects whose recorded BLAKE3 hash matches the local file are skipped.
With --prune (default: store.prune), keys without a local file are
deleted. Before uploading, referenced component documents are checked
for structural problems and for edits without a version bump.

Credentials come from IMAGEFREIGHT_S3_ACCESS_KEY / _SECRET_KEY, then the
standard AWS environment and shared credentials file.`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "report changes without writing")
	deployCmd.Flags().BoolVar(&deployPrune, "prune", true, "delete objects with no local file")
	deployCmd.Flags().BoolVar(&deployNoVerify, "no-verify", false, "skip the component document checks")

	rootCmd.AddCommand(deployCmd)
}

// deployReport is written to the reports dir after every run.
type deployReport struct {
	RunID     string    `json:"run_id"`
	Bucket    string    `json:"bucket"`
	KeyPrefix string    `json:"key_prefix"`
	DryRun    bool      `json:"dry_run"`
	Drift     []string  `json:"settings_drift,omitempty"`
	Uploaded  []string  `json:"uploaded"`
	Deleted   []string  `json:"deleted"`
	Unchanged int       `json:"unchanged"`
	Started   time.Time `json:"started"`
	Elapsed   string    `json:"elapsed"`
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	color := output.UseColor()
	w := os.Stdout
	start := time.Now()
	runID := uuid.NewString()

	if cfg.Account == "" || cfg.Region == "" {
		return fmt.Errorf("deploy: account and region are required to name the bucket")
	}
	prune := cfg.Store.PruneEnabled()
	if cmd.Flags().Changed("prune") {
		prune = deployPrune
	}

	output.Banner(w, output.NewBannerInfo(version.Version, output.CommitSHA(), cfg.Account, cfg.Region), color)

	files, err := artifact.Collect(cfg.Store.Source, cfg.Store.Exclude)
	if err != nil {
		return fmt.Errorf("collecting artifacts: %w", err)
	}

	if !deployNoVerify {
		if err := verifyComponents(ctx, w, files, color); err != nil {
			return err
		}
	} else {
		output.PhaseResult(w, "verify", output.StatusSkipped, "--no-verify", 0, color)
	}

	s3cfg, err := objectstore.ConfigFromEnv(cfg.Region)
	if err != nil {
		return err
	}
	client, err := objectstore.NewClient(s3cfg)
	if err != nil {
		return err
	}
	name := storage.BucketName(cfg.Store.BucketPrefix, cfg.Account, cfg.Region)
	bucket, err := objectstore.NewBucket(client, name)
	if err != nil {
		return err
	}

	var drift []string
	err = objectstore.RequireBucket(ctx, client, name)
	switch {
	case errors.Is(err, objectstore.ErrBucketMissing) && deployDryRun:
		drift = []string{"bucket does not exist yet"}
	case errors.Is(err, objectstore.ErrBucketMissing):
		return fmt.Errorf("deploy: %w; deploy the %s stack first", err, cfg.Store.StackName)
	case err != nil:
		return fmt.Errorf("bucket %s: %w", name, err)
	default:
		drift, err = bucket.Verify(ctx, objectstore.Settings{
			AbortMultipartDays: cfg.Store.AbortMultipartDays,
			NoncurrentDays:     cfg.Store.NoncurrentDays,
		})
		if err != nil {
			return fmt.Errorf("bucket %s: %w", name, err)
		}
	}

	res, err := artifact.Sync(ctx, bucket, files, artifact.SyncOptions{
		KeyPrefix: cfg.Store.KeyPrefix,
		Prune:     prune,
		DryRun:    deployDryRun,
		Parallel:  cfg.Store.Parallel,
		Verbose:   verbose,
	})
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	elapsed := time.Since(start)

	output.SectionStart(w, "if_deploy", "Deploy")
	sec := output.NewSection(w, "Deploy", elapsed, color)
	sec.Row("%-10s%s", "run", runID)
	sec.Row("%-10s%s/%s", "target", name, cfg.Store.KeyPrefix)
	for _, d := range drift {
		sec.Row("%-10s%s", "drift", d)
	}
	sec.Separator()
	output.SectionSync(sec, res, deployDryRun, color)
	sec.Close()
	output.SectionEnd(w, "if_deploy")

	report := deployReport{
		RunID:     runID,
		Bucket:    name,
		KeyPrefix: cfg.Store.KeyPrefix,
		DryRun:    deployDryRun,
		Drift:     drift,
		Uploaded:  res.Uploaded,
		Deleted:   res.Deleted,
		Unchanged: len(res.Unchanged),
		Started:   start.UTC(),
		Elapsed:   elapsed.String(),
	}
	if err := writeDeployReport(report); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to write deploy report: %v\n", err)
	}
	return nil
}

// verifyComponents runs the document and drift checks over the files
// about to be uploaded and refuses to continue on critical findings.
func verifyComponents(ctx context.Context, w io.Writer, files []artifact.File, color bool) error {
	start := time.Now()
	project, err := loadProject(ctx, cfg, true)
	if err != nil {
		return err
	}
	engine, err := lint.NewEngine(project, []string{"componentdoc", "drift"}, nil, verbose, nil)
	if err != nil {
		return err
	}
	findings, err := engine.Run(ctx, files)
	if err != nil {
		return err
	}
	if !lint.HasCritical(findings) {
		output.PhaseResult(w, "verify", output.StatusSuccess,
			fmt.Sprintf("%d files, %d findings", len(files), len(findings)), time.Since(start), color)
		return nil
	}

	output.PhaseResult(w, "verify", output.StatusFailed,
		fmt.Sprintf("%d files, %d findings", len(files), len(findings)), time.Since(start), color)
	sec := output.NewSection(w, "Verify", time.Since(start), color)
	output.SectionFindings(sec, findings, color)
	sec.Close()
	return fmt.Errorf("deploy: component documents failed verification (use --no-verify to skip)")
}

func writeDeployReport(r deployReport) error {
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(reportsDir, "deploy.json"), append(data, '\n'), 0o644)
}
