package feeder

import "context"

// Processor is the downstream collaborator a claimed file is handed to. The
// feeder does not interpret the outcome beyond success/failure; routing the
// file to success/error/skip storage is the processor's business.
type Processor interface {
	Process(ctx context.Context, identifier string) error
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, identifier string) error

func (f ProcessorFunc) Process(ctx context.Context, identifier string) error {
	return f(ctx, identifier)
}

// LogProcessor is the stand-in used until the report scanner is wired up: it
// only records the hand-off.
type LogProcessor struct{}

func (LogProcessor) Process(_ context.Context, identifier string) error {
	logger.Infof("dispatching claimed file for processing: %s", identifier)
	return nil
}
