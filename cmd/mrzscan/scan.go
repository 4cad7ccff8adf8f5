package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mrz-reader/internal/app"
	apperrors "mrz-reader/internal/errors"
	mrzimage "mrz-reader/internal/image"
	"mrz-reader/internal/scanner"
	"mrz-reader/pkg/geometry"
)

var (
	scanWithImages bool
	scanROI        string
	scanPortrait   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <image>...",
	Short: "Scan document images for a machine-readable zone",
	Long: `Run the full pipeline on still images and print one JSON object per image.
Images that yield no validated MRZ are reported with the rejection reason.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	addFrameFlags(scanCmd)
	scanCmd.Flags().BoolVar(&scanWithImages, "with-images", false, "include base64 JPEG document and face images")
	rootCmd.AddCommand(scanCmd)
}

// addFrameFlags registers the flags describing how a still maps to a frame.
func addFrameFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scanROI, "roi", "", "document cutout as normalized x,y,w,h (default: whole image)")
	cmd.Flags().BoolVar(&scanPortrait, "portrait", false, "ROI is given in portrait capture orientation")
}

type scanReport struct {
	File     string            `json:"file"`
	Result   map[string]string `json:"result,omitempty"`
	Format   string            `json:"format,omitempty"`
	Band     *geometry.RectInt `json:"band,omitempty"`
	Rejected string            `json:"rejected,omitempty"`
}

// resultReport describes a validated scan. Band is the MRZ outline with
// its display margin, in document image pixels.
func resultReport(path string, out *scanner.Outcome, withImages bool) (scanReport, error) {
	dict, err := scanner.HostDictionary(out, withImages)
	if err != nil {
		return scanReport{}, err
	}
	band := out.Band.Display
	return scanReport{
		File:   path,
		Result: dict,
		Format: out.Result.Format.String(),
		Band:   &band,
	}, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	template, err := frameTemplate()
	if err != nil {
		return err
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	found := 0
	for _, path := range args {
		still, err := mrzimage.Load(path)
		if err != nil {
			return err
		}
		frame := template
		frame.ID = filepath.Base(path)
		frame.Image = still.Image

		report := scanReport{File: path}
		out, err := a.Scanner.Scan(cmd.Context(), frame)
		switch {
		case err == nil:
			if report, err = resultReport(path, out, scanWithImages); err != nil {
				return err
			}
			found++
		case scanner.IsRejection(err):
			report.Rejected = scanner.RejectionReason(err)
			logger.Debug("no MRZ", zap.String("file", path), zap.Error(err))
		default:
			return err
		}
		if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}

	if found == 0 {
		return fmt.Errorf("no machine-readable zone found in %d image(s)", len(args))
	}
	return nil
}

// frameTemplate builds the frame fields shared by every image.
func frameTemplate() (scanner.Frame, error) {
	frame := scanner.Frame{Orientation: scanner.OrientationLandscape}
	if scanPortrait {
		frame.Orientation = scanner.OrientationPortrait
	}
	if scanROI != "" {
		roi, err := parseROI(scanROI)
		if err != nil {
			return frame, err
		}
		frame.ROI = roi
	}
	return frame, nil
}

// parseROI reads "x,y,w,h" normalized to [0,1].
func parseROI(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, apperrors.New(apperrors.CodeInvalidParameter, "--roi must be x,y,w,h")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.Rect{}, apperrors.Wrap(err, apperrors.CodeInvalidParameter, "invalid --roi")
		}
		v[i] = f
	}
	roi := geometry.NewRect(v[0], v[1], v[2], v[3])
	if roi.X < 0 || roi.Y < 0 || roi.Width <= 0 || roi.Height <= 0 || roi.MaxX() > 1 || roi.MaxY() > 1 {
		return geometry.Rect{}, apperrors.New(apperrors.CodeInvalidParameter, "--roi must lie within [0,1]")
	}
	return roi, nil
}
