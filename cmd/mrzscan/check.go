package main

import (
	"fmt"

	"github.com/spf13/cobra"

	apperrors "mrz-reader/internal/errors"
	"mrz-reader/internal/mrz"
)

var checkCmd = &cobra.Command{
	Use:   "check <value> [digit]",
	Short: "Compute or verify an ICAO 9303 check digit",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	value := args[0]
	digit, err := mrz.CheckDigit(value)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidParameter, "cannot compute check digit")
	}
	if len(args) == 1 {
		fmt.Fprintf(cmd.OutOrStdout(), "%c\n", digit)
		return nil
	}

	declared := args[1]
	if len(declared) != 1 {
		return apperrors.New(apperrors.CodeInvalidParameter, "check digit must be a single character")
	}
	if !mrz.ValidateCheckDigit(value, declared[0]) {
		return fmt.Errorf("check digit mismatch: declared %s, computed %c", declared, digit)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "valid")
	return nil
}
