package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/credverify/internal/model"
	"github.com/sells-group/credverify/internal/pipeline"
)

var (
	verifySchemaID string
	verifyOutPath  string
	verifyNoStore  bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify <extraction-result.json>",
	Short: "Verify extracted credentials against external registries",
	Long:  "Reads a confidence-scored extraction result, verifies eligible credential fields against the NPI registry and state boards, and writes the annotated result with a verification summary.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var res model.ExtractionResult
		if err := json.Unmarshal(data, &res); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}

		step, err := initVerifyStep()
		if err != nil {
			return err
		}

		output := step.Run(ctx, verifySchemaID, &res)

		if !verifyNoStore {
			if err := persistRun(ctx, args[0], output); err != nil {
				return err
			}
		}
		return writeOutput(output)
	},
}

// persistRun records the verification run and its result in the store.
func persistRun(ctx context.Context, sourcePath string, output *pipeline.Output) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, model.Document{
		Name:     filepath.Base(sourcePath),
		SchemaID: verifySchemaID,
		Source:   sourcePath,
	})
	if err != nil {
		return err
	}

	result, err := runResult(output)
	if err != nil {
		return err
	}
	if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
		return err
	}
	zap.L().Info("verify: run persisted", zap.String("run_id", run.ID))
	return nil
}

// runResult converts a step output into the stored result record.
func runResult(output *pipeline.Output) (*model.RunResult, error) {
	payload, err := output.Payload()
	if err != nil {
		return nil, err
	}
	result := &model.RunResult{
		Result:  output.Result,
		Message: output.Message,
		Output:  payload,
	}
	if output.Summary != nil {
		summary, err := json.Marshal(output.Summary)
		if err != nil {
			return nil, eris.Wrap(err, "marshal summary")
		}
		result.Summary = summary
	}
	return result, nil
}

// writeOutput renders the annotated payload to --out or stdout.
func writeOutput(output *pipeline.Output) error {
	payload, err := output.Payload()
	if err != nil {
		return err
	}
	if verifyOutPath == "" {
		fmt.Println(string(payload))
		return nil
	}
	if err := os.WriteFile(verifyOutPath, payload, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", verifyOutPath)
	}
	return nil
}

func init() {
	verifyCmd.Flags().StringVar(&verifySchemaID, "schema", "", "schema ID selecting the verification policy")
	verifyCmd.Flags().StringVarP(&verifyOutPath, "out", "o", "", "write annotated output to file (default stdout)")
	verifyCmd.Flags().BoolVar(&verifyNoStore, "no-store", false, "do not persist the run")
	rootCmd.AddCommand(verifyCmd)
}
