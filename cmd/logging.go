package cmd

import (
	"os"

	"github.com/gekko3d/rtdemo/rt/logging"
	"github.com/gekko3d/rtdemo/rt/tracer"
	"github.com/urfave/cli"
)

var (
	// logger reports what the commands do; traceLogger is handed to the
	// device and tracer and is only chatty at -vv.
	logger      = logging.NewDefaultLogger("rtdemo", false)
	traceLogger = logging.NewDefaultLogger("tracer", false)
)

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		logger.SetDebug(true)
	}

	if ctx.GlobalBool("vv") {
		logger.SetDebug(true)
		traceLogger.SetDebug(true)
	}
}

// Fatal logs err and exits with a non-zero status.
func Fatal(err error) {
	if stage, ok := tracer.StageOf(err); ok {
		logger.Debugf("failed stage: %s", stage)
	}
	logger.Errorf("%v", err)
	os.Exit(1)
}
