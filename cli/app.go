// Package cli contains the bopeval command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"go.viam.com/bopeval/logging"
	"go.viam.com/bopeval/poseerror"
)

const (
	// Flags.
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	modelFlagPath  = "model"
	modelFlagScale = "model-scale"

	poseFlagEstimateRotation       = "estimate-rotation"
	poseFlagEstimateTranslation    = "estimate-translation"
	poseFlagGroundTruthRotation    = "ground-truth-rotation"
	poseFlagGroundTruthTranslation = "ground-truth-translation"
	poseFlagRotation               = "rotation"
	poseFlagTranslation            = "translation"

	imageFlagDepth      = "depth"
	imageFlagDepthScale = "depth-scale"
	imageFlagCamera     = "camera"
	imageFlagOutput     = "output"
	imageFlagZDepth     = "z-depth"

	vsdFlagDelta = "delta"
	vsdFlagTau   = "tau"

	evaluateFlagConfig = "config"
	evaluateFlagUnits  = "units"

	reportFlagDatabase   = "database"
	reportFlagPlot       = "plot"
	reportFlagHistogram  = "histogram"
	reportFlagThresholds = "thresholds"
	reportFlagRun        = "run"

	metadataLogger = "logger"
	metadataCloser = "logger-closer"
)

var modelFlags = []cli.Flag{
	&cli.PathFlag{
		Name:     modelFlagPath,
		Required: true,
		Usage:    "object model as an ASCII PLY `FILE`",
	},
	&cli.Float64Flag{
		Name:  modelFlagScale,
		Value: 0.001,
		Usage: "factor converting model units to meters",
	},
}

var estimateFlags = []cli.Flag{
	&cli.Float64SliceFlag{
		Name:     poseFlagEstimateRotation,
		Required: true,
		Usage:    "estimated rotation as 9 comma separated values, row-major",
	},
	&cli.Float64SliceFlag{
		Name:     poseFlagEstimateTranslation,
		Required: true,
		Usage:    "estimated translation in meters as 3 comma separated values",
	},
	&cli.Float64SliceFlag{
		Name:     poseFlagGroundTruthRotation,
		Required: true,
		Usage:    "ground truth rotation as 9 comma separated values, row-major",
	},
	&cli.Float64SliceFlag{
		Name:     poseFlagGroundTruthTranslation,
		Required: true,
		Usage:    "ground truth translation in meters as 3 comma separated values",
	},
}

func flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

var app = &cli.App{
	Name:            "bopeval",
	Usage:           "evaluate 6D object pose estimates",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  generalFlagLogFile,
			Usage: "also write JSON logs to `FILE`, rotated by size",
		},
	},
	Before: setupLogger,
	After:  closeLogger,
	Commands: []*cli.Command{
		{
			Name:   "diameter",
			Usage:  "print the diameter of an object model",
			Flags:  modelFlags,
			Action: DiameterAction,
		},
		{
			Name:   "point-errors",
			Usage:  "print the ADD, ADD-S and MDD-S errors of an estimated pose",
			Flags:  flags(modelFlags, estimateFlags),
			Action: PointErrorsAction,
		},
		{
			Name:  "vsd",
			Usage: "print the visible surface discrepancy of an estimated pose",
			Flags: flags(modelFlags, estimateFlags, []cli.Flag{
				&cli.PathFlag{
					Name:     imageFlagDepth,
					Required: true,
					Usage:    "measured depth as a 16-bit PNG `FILE`",
				},
				&cli.Float64Flag{
					Name:  imageFlagDepthScale,
					Value: 0.001,
					Usage: "factor converting raw depth values to meters",
				},
				&cli.PathFlag{
					Name:     imageFlagCamera,
					Required: true,
					Usage:    "camera intrinsics JSON `FILE`",
				},
				&cli.Float64Flag{
					Name:  vsdFlagDelta,
					Value: poseerror.DefaultDelta,
					Usage: "visibility tolerance in meters",
				},
				&cli.Float64SliceFlag{
					Name:  vsdFlagTau,
					Usage: "misalignment tolerances in meters, defaults to the BOP19 fractions of the diameter",
				},
			}),
			Action: VSDAction,
		},
		{
			Name:  "render",
			Usage: "render the distance image of an object model at a pose",
			Flags: flags(modelFlags, []cli.Flag{
				&cli.Float64SliceFlag{
					Name:     poseFlagRotation,
					Required: true,
					Usage:    "rotation as 9 comma separated values, row-major",
				},
				&cli.Float64SliceFlag{
					Name:     poseFlagTranslation,
					Required: true,
					Usage:    "translation in meters as 3 comma separated values",
				},
				&cli.PathFlag{
					Name:     imageFlagCamera,
					Required: true,
					Usage:    "camera intrinsics JSON `FILE`",
				},
				&cli.PathFlag{
					Name:     imageFlagOutput,
					Required: true,
					Usage:    "16-bit PNG `FILE` to write",
				},
				&cli.Float64Flag{
					Name:  imageFlagDepthScale,
					Value: 0.001,
					Usage: "meters per raw output value",
				},
				&cli.BoolFlag{
					Name:  imageFlagZDepth,
					Usage: "write z-depth like BOP depth images instead of distance from the camera center",
				},
			}),
			Action: RenderAction,
		},
		{
			Name:  "evaluate",
			Usage: "evaluate a units file and print recall per estimator and metric",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     evaluateFlagConfig,
					Aliases:  []string{"c"},
					Required: true,
					Usage:    "load configuration from `FILE`",
				},
				&cli.PathFlag{
					Name:     evaluateFlagUnits,
					Required: true,
					Usage:    "JSON `FILE` listing the units to evaluate",
				},
				&cli.PathFlag{
					Name:  reportFlagPlot,
					Usage: "write recall curves to `FILE`",
				},
			},
			Action: EvaluateAction,
		},
		{
			Name:  "report",
			Usage: "print recall from a result database",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     reportFlagDatabase,
					Required: true,
					Usage:    "sqlite result `FILE`",
				},
				&cli.PathFlag{
					Name:  reportFlagPlot,
					Usage: "write recall curves to `FILE`",
				},
				&cli.BoolFlag{
					Name:  reportFlagHistogram,
					Usage: "print an error histogram per estimator and metric",
				},
				&cli.Float64SliceFlag{
					Name:  reportFlagThresholds,
					Usage: "recall thresholds, defaults to the BOP19 grid",
				},
				&cli.StringFlag{
					Name:  reportFlagRun,
					Usage: "report only the run with this `ID`, by default the latest run of each estimator",
				},
			},
			Action: ReportAction,
		},
		{
			Name:   "config-schema",
			Usage:  "print the JSON schema of the configuration file",
			Action: ConfigSchemaAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

func setupLogger(c *cli.Context) error {
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]interface{}{}
	}
	delete(c.App.Metadata, metadataCloser)
	var logger logging.Logger
	debug := c.Bool(generalFlagDebug)
	switch {
	case c.Path(generalFlagLogFile) != "":
		var closer io.Closer
		logger, closer = logging.NewFileLogger("bopeval", c.Path(generalFlagLogFile), debug)
		c.App.Metadata[metadataCloser] = closer
	case debug:
		logger = logging.NewDebugLogger("bopeval")
	default:
		logger = logging.NewLogger("bopeval")
	}
	c.App.Metadata[metadataLogger] = logger
	return nil
}

func closeLogger(c *cli.Context) error {
	if closer, ok := c.App.Metadata[metadataCloser].(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func loggerFrom(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[metadataLogger].(logging.Logger); ok {
		return logger
	}
	return logging.Global()
}
