package pipeline

import "context"

// PageFetch requests one page of records. Page numbers start at one.
type PageFetch[ItemType any] func(executionContext context.Context, pageNumber int) ([]ItemType, error)

// FetchAllPages drains a paged source strictly sequentially: page N+1 is only
// requested after page N's response is observed, because the remote cursor is
// stateful. The loop terminates when a page comes back shorter than the page
// size; no request follows a short or empty page.
func FetchAllPages[ItemType any](executionContext context.Context, pageSize int, fetchPage PageFetch[ItemType]) ([]ItemType, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var collected []ItemType
	for pageNumber := 1; ; pageNumber++ {
		page, fetchError := fetchPage(executionContext, pageNumber)
		if fetchError != nil {
			return nil, fetchError
		}
		collected = append(collected, page...)
		if len(page) < pageSize {
			return collected, nil
		}
	}
}
