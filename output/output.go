// Package output writes harvested events to a file.
package output

import (
	"context"
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/log"
)

// Write stores events at path as JSON indented by two spaces, replacing any
// previous file.
func Write(path string, events []harvest.EventRecord) error {
	const op errors.Op = "output.Write"

	if events == nil {
		events = []harvest.EventRecord{}
	}
	b, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return errors.E(op, errors.Internal, err)
	}
	b = append(b, '\n')

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.E(op, errors.Internal, err)
	}
	return nil
}

// Save is Write for the end of a run: a failure is logged and the events
// stay available to the caller.
func Save(ctx context.Context, path string, events []harvest.EventRecord) {
	logger := log.FromContext(ctx).With(zap.String("path", path))

	if err := Write(path, events); err != nil {
		logger.Error("write output failed", zap.Error(err))
		return
	}
	logger.Info("output written", zap.Int("events", len(events)))
}
