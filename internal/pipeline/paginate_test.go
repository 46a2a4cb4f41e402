package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stencilhq/stencil/internal/pipeline"
)

func TestFetchAllPagesStopsOnShortPage(testInstance *testing.T) {
	testInstance.Parallel()

	pages := map[int][]int{
		1: {1, 2, 3},
		2: {4, 5, 6},
		3: {7},
	}
	var requestedPages []int

	collected, fetchError := pipeline.FetchAllPages(context.Background(), 3, func(_ context.Context, pageNumber int) ([]int, error) {
		requestedPages = append(requestedPages, pageNumber)
		return pages[pageNumber], nil
	})

	require.NoError(testInstance, fetchError)
	require.Equal(testInstance, []int{1, 2, 3, 4, 5, 6, 7}, collected)
	// Sequential: page N+1 only after page N, and nothing after the short page.
	require.Equal(testInstance, []int{1, 2, 3}, requestedPages)
}

func TestFetchAllPagesStopsOnEmptyFirstPage(testInstance *testing.T) {
	testInstance.Parallel()

	requestCount := 0
	collected, fetchError := pipeline.FetchAllPages(context.Background(), 100, func(_ context.Context, _ int) ([]int, error) {
		requestCount++
		return nil, nil
	})

	require.NoError(testInstance, fetchError)
	require.Empty(testInstance, collected)
	require.Equal(testInstance, 1, requestCount)
}

func TestFetchAllPagesPropagatesFetchFailure(testInstance *testing.T) {
	testInstance.Parallel()

	expectedFailure := errors.New("page fetch failed")

	_, fetchError := pipeline.FetchAllPages(context.Background(), 2, func(_ context.Context, pageNumber int) ([]int, error) {
		if pageNumber == 2 {
			return nil, expectedFailure
		}
		return []int{1, 2}, nil
	})

	require.ErrorIs(testInstance, fetchError, expectedFailure)
}
