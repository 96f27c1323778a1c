package main

import (
	"encoding/json"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/a2flo/floor-llvm/internal/hostir"
	"github.com/a2flo/floor-llvm/internal/structurize"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Structurize a JSON-encoded host-IR function",
	RunE:  runStructurize,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("input", "i", "", "path to the JSON host-IR fixture (required)")
	runCmd.Flags().StringP("output", "o", "", "path to write the rewritten function (default: stdout)")
	runCmd.Flags().Int("max-passes", structurize.DefaultMaxPasses, "pass budget before giving up (spec MAX_PASSES)")
	runCmd.Flags().Int("debug", int(zerolog.WarnLevel), "zerolog level: -1 trace .. 5 panic")
	runCmd.Flags().Bool("dump-cfg", false, "print a colorized before/after block list to stderr")
	_ = runCmd.MarkFlagRequired("input")
}

func runStructurize(cmd *cobra.Command, _ []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	maxPasses, _ := cmd.Flags().GetInt("max-passes")
	debugLevel, _ := cmd.Flags().GetInt("debug")
	dumpCFG, _ := cmd.Flags().GetBool("dump-cfg")

	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	var fn hostir.Function
	if err := json.Unmarshal(raw, &fn); err != nil {
		return err
	}

	if dumpCFG {
		dumpBlocks("before", &fn)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.Level(debugLevel)).
		With().Timestamp().Logger()

	result, err := structurize.Structurize(&fn, structurize.Options{MaxPasses: maxPasses, Logger: logger})
	if err != nil {
		return err
	}
	for _, w := range result.PhiWarnings {
		logger.Warn().Str("node", w.Node).Str("phi", w.Phi).Str("pred", w.Pred).Msg("malformed phi recovered with undef")
	}

	if dumpCFG {
		dumpBlocks("after", result.Function)
	}

	out, err := json.MarshalIndent(result.Function, "", "  ")
	if err != nil {
		return err
	}
	if outputPath == "" {
		_, err = os.Stdout.Write(append(out, '\n'))
		return err
	}
	return os.WriteFile(outputPath, append(out, '\n'), 0o644)
}

func dumpBlocks(label string, fn *hostir.Function) {
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	merge := color.New(color.FgGreen).SprintFunc()
	os.Stderr.WriteString(header("=== "+label+" ===") + "\n")
	for _, b := range fn.Blocks {
		line := b.Name
		if b.LoopMerge != "" {
			line += " " + merge("loop_merge("+b.LoopMerge+", "+b.LoopContinue+")")
		}
		if b.SelectionMerge != "" {
			line += " " + merge("selection_merge("+b.SelectionMerge+")")
		}
		os.Stderr.WriteString(line + "\n")
	}
}
