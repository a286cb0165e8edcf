package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/credverify/internal/confidence"
)

var mergeOutPath string

var mergeCmd = &cobra.Command{
	Use:   "merge <confidence-a.json> <confidence-b.json>",
	Short: "Merge two confidence score documents",
	Long:  "Combines two confidence documents over the same schema, keeping the lower score wherever both passes scored a field, and reports the aggregate statistics.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readConfidenceFile(args[0])
		if err != nil {
			return err
		}
		b, err := readConfidenceFile(args[1])
		if err != nil {
			return err
		}

		merged, err := confidence.Merge(a, b)
		if err != nil {
			return eris.Wrap(err, "merge")
		}

		out, err := json.MarshalIndent(merged, "", "  ")
		if err != nil {
			return eris.Wrap(err, "merge: encode result")
		}
		out = append(out, '\n')

		if mergeOutPath == "" {
			fmt.Print(string(out))
			return nil
		}
		if err := os.WriteFile(mergeOutPath, out, 0o644); err != nil {
			return eris.Wrapf(err, "merge: write %s", mergeOutPath)
		}
		return nil
	},
}

func readConfidenceFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	return doc, nil
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutPath, "out", "o", "", "write merged result to file (default stdout)")
	rootCmd.AddCommand(mergeCmd)
}
