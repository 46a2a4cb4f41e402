package pipeline

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	stepErrorBaseTemplateConstant       = "%s failed"
	stepErrorCollectionTemplateConstant = "collection %s"
	stepErrorBatchTemplateConstant      = "batch %d"
	stepErrorPageTemplateConstant       = "page %d"
	stepErrorCauseTemplateConstant      = "%s: %v"
	stepErrorContextSeparatorConstant   = ", "
	stepErrorContextTemplateConstant    = "%s (%s)"

	logFieldOperationConstant  = "operation"
	logFieldCollectionConstant = "collection"
	logFieldBatchIndexConstant = "batch_index"
	logFieldPageNumberConstant = "page_number"
	stepFailureLogMessage      = "Pipeline step failed"
)

// StepError captures the contextual metadata of a failed pipeline operation:
// the operation name plus the collection, batch index, and page number where
// the failure occurred, when applicable.
type StepError struct {
	Operation  string
	Collection string
	BatchIndex int
	PageNumber int
	Cause      error
}

// NewStepError builds a step error with no batch or page context.
func NewStepError(operationName string, collectionName string, cause error) StepError {
	return StepError{Operation: operationName, Collection: collectionName, BatchIndex: -1, PageNumber: 0, Cause: cause}
}

// WithBatch attaches the failing batch index.
func (stepError StepError) WithBatch(batchIndex int) StepError {
	stepError.BatchIndex = batchIndex
	return stepError
}

// WithPage attaches the failing page number.
func (stepError StepError) WithPage(pageNumber int) StepError {
	stepError.PageNumber = pageNumber
	return stepError
}

// Error renders the operation name with whatever context is attached.
func (stepError StepError) Error() string {
	message := fmt.Sprintf(stepErrorBaseTemplateConstant, stepError.Operation)

	contextParts := make([]string, 0, 3)
	if len(stepError.Collection) > 0 {
		contextParts = append(contextParts, fmt.Sprintf(stepErrorCollectionTemplateConstant, stepError.Collection))
	}
	if stepError.BatchIndex >= 0 {
		contextParts = append(contextParts, fmt.Sprintf(stepErrorBatchTemplateConstant, stepError.BatchIndex))
	}
	if stepError.PageNumber > 0 {
		contextParts = append(contextParts, fmt.Sprintf(stepErrorPageTemplateConstant, stepError.PageNumber))
	}
	if len(contextParts) > 0 {
		message = fmt.Sprintf(stepErrorContextTemplateConstant, message, strings.Join(contextParts, stepErrorContextSeparatorConstant))
	}

	if stepError.Cause != nil {
		message = fmt.Sprintf(stepErrorCauseTemplateConstant, message, stepError.Cause)
	}
	return message
}

// Unwrap exposes the underlying cause.
func (stepError StepError) Unwrap() error {
	return stepError.Cause
}

// Capture routes every step failure through one logging point. Fatal failures
// are returned for the caller to escalate; non-fatal failures are recorded and
// swallowed so the remaining units continue.
func Capture(logger *zap.Logger, stepError StepError, fatal bool) error {
	if logger != nil {
		logger.Error(
			stepFailureLogMessage,
			zap.String(logFieldOperationConstant, stepError.Operation),
			zap.String(logFieldCollectionConstant, stepError.Collection),
			zap.Int(logFieldBatchIndexConstant, stepError.BatchIndex),
			zap.Int(logFieldPageNumberConstant, stepError.PageNumber),
			zap.Error(stepError.Cause),
		)
	}
	if fatal {
		return stepError
	}
	return nil
}
