package internal

import (
	"context"
	"io"

	"github.com/matrix-org/util"
)

// VersionString returns the version of this build.
func VersionString() string {
	return version
}

const version = "0.3.1"

// CloseAndLogIfError closes the given closer and logs the error, if any.
// Used on rows and statements where a failed close would otherwise be
// silently dropped.
func CloseAndLogIfError(ctx context.Context, closer io.Closer, message string) {
	if closer == nil {
		return
	}
	err := closer.Close()
	if ctx == nil {
		ctx = context.TODO()
	}
	if err != nil {
		util.GetLogger(ctx).WithError(err).Error(message)
	}
}
