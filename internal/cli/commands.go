package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/artprovider/internal/protocol"
)

// commandContext returns the command's context, or a background context
// when the command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// fail reports err through the formatter and converts it into an
// ExitError. Provider errors exit with ExitFailure; anything else means
// the request never got an answer.
func fail(f *OutputFormatter, message string, err error) error {
	var svcErr *protocol.ServiceError
	if errors.As(err, &svcErr) {
		_ = f.Error(ErrCodeService, fmt.Sprintf("%s: %s", message, svcErr.Message),
			map[string]string{"action": svcErr.Action, "request_id": svcErr.RequestID})
		return WrapExitError(ExitFailure, message, err)
	}
	_ = f.Error(ErrCodeUnreachable, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(ExitCommandError, message, err)
}
