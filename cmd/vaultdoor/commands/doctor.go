package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/vaultdoor/internal/config"
	"github.com/systmms/vaultdoor/internal/logging"
	"github.com/systmms/vaultdoor/internal/stores"
)

const doctorProbeTimeout = 10 * time.Second

// CheckResult is the outcome of one doctor check.
type CheckResult struct {
	Name        string
	Status      string // ok, warn, error
	Detail      string
	Suggestions []string
}

func NewDoctorCommand(opts *rootOptions) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and store connectivity",
		Long: `Verify that VaultDoor can serve with the current configuration.

This command checks:
- Configuration file, environment, and flag validity
- API token configuration
- Secret store client construction
- Secret store connectivity and authentication

It exits non-zero when any check fails, so it can gate deployments.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context(), opts, verbose)
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show suggestions for failing checks")

	return cmd
}

func runDoctor(ctx context.Context, opts *rootOptions, verbose bool) error {
	logger := logging.New(opts.debug, opts.noColor)
	logger.Info("Checking vaultdoor configuration...")

	results := make([]CheckResult, 0, 4)

	cfg, err := loadConfig(opts)
	if err != nil {
		results = append(results, CheckResult{
			Name:   "configuration",
			Status: "error",
			Detail: err.Error(),
			Suggestions: []string{
				"Fix the reported field in vaultdoor.yaml, or override it with a flag",
			},
		})
		displayCheckResults(results, verbose)
		return fmt.Errorf("configuration is not usable")
	}

	results = append(results, CheckResult{
		Name:   "configuration",
		Status: "ok",
		Detail: cfg.Summary(),
	})
	results = append(results, tokenCheck(cfg))

	st, err := stores.NewRegistry().CreateStore(cfg.Store.Type, cfg.Store)
	if err != nil {
		results = append(results, CheckResult{
			Name:        "store client",
			Status:      "error",
			Detail:      err.Error(),
			Suggestions: storeSuggestions(cfg.Store.Type, err),
		})
		displayCheckResults(results, verbose)
		return fmt.Errorf("store client could not be constructed")
	}

	results = append(results, CheckResult{
		Name:   "store client",
		Status: "ok",
		Detail: fmt.Sprintf("%s client constructed", cfg.Store.Type),
	})

	probeCtx, cancel := context.WithTimeout(ctx, doctorProbeTimeout)
	defer cancel()

	if err := st.Validate(probeCtx); err != nil {
		results = append(results, CheckResult{
			Name:        "store connectivity",
			Status:      "error",
			Detail:      err.Error(),
			Suggestions: storeSuggestions(cfg.Store.Type, err),
		})
	} else {
		results = append(results, CheckResult{
			Name:   "store connectivity",
			Status: "ok",
			Detail: "store is reachable and authenticated",
		})
	}

	displayCheckResults(results, verbose)

	passed := 0
	for _, result := range results {
		if result.Status != "error" {
			passed++
		}
	}

	fmt.Printf("\nSummary: %d/%d checks passed\n", passed, len(results))
	if passed < len(results) {
		return fmt.Errorf("some checks failed")
	}

	logger.Info("✓ VaultDoor is ready to serve")
	return nil
}

func tokenCheck(cfg *config.Config) CheckResult {
	if cfg.UsingDemoToken() {
		return CheckResult{
			Name:   "api token",
			Status: "warn",
			Detail: "built-in demo token in use",
			Suggestions: []string{
				"Set VAULTDOOR_API_TOKEN or api_token in vaultdoor.yaml",
			},
		}
	}
	return CheckResult{
		Name:   "api token",
		Status: "ok",
		Detail: "token configured",
	}
}

// displayCheckResults shows the checks in a formatted table.
func displayCheckResults(results []CheckResult, verbose bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "CHECK\tSTATUS\tDETAIL\n")
	_, _ = fmt.Fprintf(w, "-----\t------\t------\n")

	for _, result := range results {
		status := result.Status
		switch result.Status {
		case "ok":
			status = "✓ " + status
		case "warn":
			status = "⚠ " + status
		case "error":
			status = "✗ " + status
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", result.Name, status, result.Detail)
	}

	_ = w.Flush()

	if verbose {
		for _, result := range results {
			if result.Status == "ok" || len(result.Suggestions) == 0 {
				continue
			}
			fmt.Printf("\n%s suggestions:\n", result.Name)
			for _, suggestion := range result.Suggestions {
				fmt.Printf("  • %s\n", suggestion)
			}
		}
	}
}

// storeSuggestions maps common per-backend failures to next steps.
func storeSuggestions(storeType string, err error) []string {
	msg := ""
	if err != nil {
		msg = strings.ToLower(err.Error())
	}

	switch storeType {
	case "azure.keyvault", "azure":
		suggestions := []string{
			"Confirm the vault URL (https://<name>.vault.azure.net)",
			"Run 'az login' or configure a managed identity",
		}
		if strings.Contains(msg, "forbidden") || strings.Contains(msg, "access denied") {
			suggestions = append(suggestions, "Grant the caller 'Key Vault Secrets Officer' on the vault")
		}
		return suggestions
	case "aws.secretsmanager", "aws.ssm":
		return []string{
			"Check AWS credentials with 'aws sts get-caller-identity'",
			"Confirm the region setting matches where the secrets live",
		}
	case "gcp.secretmanager", "gcp":
		return []string{
			"Run 'gcloud auth application-default login'",
			"Confirm the project setting or GOOGLE_CLOUD_PROJECT",
		}
	case "sql":
		suggestions := []string{
			"Confirm the database in the DSN is reachable from this host",
		}
		if strings.Contains(msg, "does not exist") || strings.Contains(msg, "no such table") {
			suggestions = append(suggestions, "Create the secrets table; validate runs the bootstrap DDL when it can")
		}
		return suggestions
	case "keychain":
		return []string{
			"Ensure a keyring service is available (Keychain, gnome-keyring, or KWallet)",
		}
	default:
		return nil
	}
}
