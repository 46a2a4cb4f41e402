package ui_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/stencilhq/stencil/internal/ui"
)

func TestStepEventFormatterMessages(testInstance *testing.T) {
	testInstance.Parallel()

	formatter := ui.StepEventFormatter{}

	require.Equal(testInstance, "Running collections load", formatter.BuildStartedMessage("collections load"))
	require.Equal(testInstance, "Completed collections load", formatter.BuildCompletedMessage("collections load"))
	require.Equal(testInstance, "Skipped users load", formatter.BuildSkippedMessage("users load"))
	require.Equal(testInstance, "relations load failed: boom", formatter.BuildFailedMessage("relations load", errors.New("boom")))
	require.Equal(testInstance, "relations load failed: unknown error", formatter.BuildFailedMessage("relations load", nil))
}

func TestConsoleStepEventLoggerToleratesNilLogger(testInstance *testing.T) {
	testInstance.Parallel()

	eventLogger := ui.NewConsoleStepEventLogger(nil)
	require.NotNil(testInstance, eventLogger)

	eventLogger.StepStarted("collections load")
	eventLogger.StepCompleted("collections load")
	eventLogger.StepSkipped("users load")
	eventLogger.StepFailed("relations load", errors.New("boom"))
}

func TestConsoleStepEventLoggerWritesThroughZap(testInstance *testing.T) {
	testInstance.Parallel()

	observedCore, observedLogs := observer.New(zapcore.InfoLevel)
	eventLogger := ui.NewConsoleStepEventLogger(zap.New(observedCore))

	eventLogger.StepStarted("collections load")
	eventLogger.StepFailed("relations load", errors.New("boom"))

	entries := observedLogs.All()
	require.Len(testInstance, entries, 2)
	require.Equal(testInstance, "Running collections load", entries[0].Message)
	require.Equal(testInstance, zapcore.ErrorLevel, entries[1].Level)
	require.Equal(testInstance, "relations load failed: boom", entries[1].Message)
}
