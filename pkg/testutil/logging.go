package testutil

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Importing this package silences logrus unless tests run with -v.
func init() {
	var isVerbose bool
	for _, arg := range os.Args {
		if arg == "-test.v=true" || arg == "-test.v" {
			isVerbose = true
		}
	}

	logrus.SetLevel(logrus.TraceLevel)

	if !isVerbose {
		logrus.StandardLogger().Out = io.Discard
	}
}
