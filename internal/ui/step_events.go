package ui

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	stepStartedMessageTemplateConstant   = "Running %s"
	stepCompletedMessageTemplateConstant = "Completed %s"
	stepSkippedMessageTemplateConstant   = "Skipped %s"
	stepFailedMessageTemplateConstant    = "%s failed: %s"
	unknownFailureMessageConstant        = "unknown error"
)

// StepEventObserver receives pipeline step lifecycle notifications.
type StepEventObserver interface {
	StepStarted(stepName string)
	StepCompleted(stepName string)
	StepSkipped(stepName string)
	StepFailed(stepName string, failure error)
}

// StepEventFormatter builds human-readable messages for step lifecycle events.
type StepEventFormatter struct{}

// BuildStartedMessage formats the message describing a step about to run.
func (formatter StepEventFormatter) BuildStartedMessage(stepName string) string {
	return fmt.Sprintf(stepStartedMessageTemplateConstant, stepName)
}

// BuildCompletedMessage formats the message describing a finished step.
func (formatter StepEventFormatter) BuildCompletedMessage(stepName string) string {
	return fmt.Sprintf(stepCompletedMessageTemplateConstant, stepName)
}

// BuildSkippedMessage formats the message describing a step disabled by its capability flag.
func (formatter StepEventFormatter) BuildSkippedMessage(stepName string) string {
	return fmt.Sprintf(stepSkippedMessageTemplateConstant, stepName)
}

// BuildFailedMessage formats the message describing a failed step and its cause.
func (formatter StepEventFormatter) BuildFailedMessage(stepName string, failure error) string {
	failureMessage := unknownFailureMessageConstant
	if failure != nil {
		failureMessage = failure.Error()
	}
	return fmt.Sprintf(stepFailedMessageTemplateConstant, stepName, failureMessage)
}

// ConsoleStepEventLogger renders step lifecycle events through a zap logger
// configured for console output.
type ConsoleStepEventLogger struct {
	logger    *zap.Logger
	formatter StepEventFormatter
}

// NewConsoleStepEventLogger constructs a console event logger backed by the provided zap logger.
func NewConsoleStepEventLogger(logger *zap.Logger) *ConsoleStepEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleStepEventLogger{logger: logger, formatter: StepEventFormatter{}}
}

// StepStarted logs a step start notification.
func (eventLogger *ConsoleStepEventLogger) StepStarted(stepName string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(stepName))
}

// StepCompleted logs a step completion notification.
func (eventLogger *ConsoleStepEventLogger) StepCompleted(stepName string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildCompletedMessage(stepName))
}

// StepSkipped logs a step skip notification.
func (eventLogger *ConsoleStepEventLogger) StepSkipped(stepName string) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Debug(eventLogger.formatter.BuildSkippedMessage(stepName))
}

// StepFailed logs a step failure with its cause.
func (eventLogger *ConsoleStepEventLogger) StepFailed(stepName string, failure error) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Error(eventLogger.formatter.BuildFailedMessage(stepName, failure))
}
